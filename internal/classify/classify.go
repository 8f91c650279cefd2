// Package classify scores the structural conformance of extracted files and
// routes them to the primary or the auxiliary output.
package classify

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/src-d/enry/v2"
)

// DefaultWorkflowsDir is the directory GitHub reads workflow definitions from.
const DefaultWorkflowsDir = ".github/workflows"

var (
	triggerKey = topLevelKey("on")
	jobsKey    = topLevelKey("jobs")
)

func topLevelKey(key string) *regexp.Regexp {
	return regexp.MustCompile(`(?m)^["']?` + regexp.QuoteMeta(key) + `["']?\s*:`)
}

// Result is the classification of one version of a file.
type Result struct {
	ValidYAML        bool
	ProbablyWorkflow bool
	ValidWorkflow    bool
	// Primary is set for workflow definitions; everything else is auxiliary.
	Primary bool
}

// Classifier computes validity flags for file contents.
// It holds no mutable state and is safe for concurrent use.
type Classifier struct {
	workflowPath *regexp.Regexp
	validator    Validator
}

// New creates a classifier for workflows stored directly under workflowsDir.
// A nil validator selects the embedded baseline schema.
func New(workflowsDir string, validator Validator) (*Classifier, error) {
	if workflowsDir == "" {
		workflowsDir = DefaultWorkflowsDir
	}
	if validator == nil {
		v, err := DefaultSchemaValidator()
		if err != nil {
			return nil, err
		}
		validator = v
	}
	pattern := fmt.Sprintf(`^%s/[^/]*\.(yml|yaml)$`, regexp.QuoteMeta(strings.Trim(workflowsDir, "/")))
	return &Classifier{
		workflowPath: regexp.MustCompile(pattern),
		validator:    validator,
	}, nil
}

// IsWorkflowPath reports whether path is a workflow definition location.
func (c *Classifier) IsWorkflowPath(path string) bool {
	return c.workflowPath.MatchString(path)
}

// Classify never fails: undecodable content yields all flags false.
func (c *Classifier) Classify(path string, content []byte) Result {
	if !Decodable(content) {
		return Result{}
	}

	doc, parseErr := parse(content)
	r := Result{
		ValidYAML:        parseErr == nil,
		ProbablyWorkflow: scanKeys(content) || (parseErr == nil && hasKeys(doc)),
	}
	if c.IsWorkflowPath(path) {
		r.Primary = r.ProbablyWorkflow
		if r.ValidYAML {
			r.ValidWorkflow = c.validator.Validate(doc)
		}
	}
	return r
}

// Decodable reports whether content is text in UTF-8.
func Decodable(content []byte) bool {
	return !enry.IsBinary(content) && utf8.Valid(content)
}

func scanKeys(content []byte) bool {
	return triggerKey.Match(content) && jobsKey.Match(content)
}

func hasKeys(doc any) bool {
	m, ok := doc.(map[string]any)
	if !ok {
		return false
	}
	_, hasOn := m["on"]
	_, hasJobs := m["jobs"]
	return hasOn && hasJobs
}
