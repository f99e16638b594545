// Package scenario runs scripted sequences of operations against a dynarray.Array
// and checks the outcome against expectations declared alongside the script.
package scenario

import (
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/715d/dynarray/pkg/dynarray"
)

// Operation names accepted in a step's op field.
const (
	OpAppend = "append"
	OpInsert = "insert"
	OpRead   = "read"
	OpRemove = "remove"
	OpPrint  = "print"
)

// Error kinds accepted in a step's error field and in create_error.
const (
	KindInvalidArgument = "invalid_argument"
	KindIndexOutOfRange = "index_out_of_range"
	KindNotFound        = "not_found"
	kindUnknown         = "unknown"
)

// Scenario is a single scripted run against a fresh array.
type Scenario struct {
	// Path is the file the scenario was loaded from.
	Path string `yaml:"-"`

	// Name is a descriptive name. Defaults to the file's directory name.
	Name string `yaml:"name"`

	// Capacity is the initial capacity passed to dynarray.New.
	Capacity int `yaml:"capacity"`

	// CreateError is the error kind creation is expected to fail with.
	// When set, Steps and Expect are ignored.
	CreateError string `yaml:"create_error,omitempty"`

	// Steps are applied in order.
	Steps []Step `yaml:"steps"`

	// Expect describes the array after the last step.
	Expect *Expectation `yaml:"expect,omitempty"`
}

// Step is one operation.
type Step struct {
	Op    string `yaml:"op"`
	Value string `yaml:"value,omitempty"`
	Index int    `yaml:"index,omitempty"`

	// Want is the value a read must return.
	Want *string `yaml:"want,omitempty"`

	// Error is the error kind the step must fail with. Empty means success.
	Error string `yaml:"error,omitempty"`
}

// Expectation describes the final array state. Unset fields are not checked.
type Expectation struct {
	Elements    *[]string `yaml:"elements,omitempty"`
	Count       *int      `yaml:"count,omitempty"`
	Capacity    int       `yaml:"capacity,omitempty"`
	MinCapacity int       `yaml:"min_capacity,omitempty"`
	Dump        string    `yaml:"dump,omitempty"`
}

// Result is the outcome of running a scenario.
type Result struct {
	Name    string   `json:"name"`
	Path    string   `json:"path,omitempty"`
	Success bool     `json:"success"`
	Message string   `json:"message"`
	Details []string `json:"details,omitempty"`

	// Steps is the number of steps executed.
	Steps int `json:"steps"`

	// Dumps holds the rendering produced by each print step.
	Dumps []string `json:"dumps,omitempty"`

	// ErrorKinds counts the errors the array reported, by kind.
	ErrorKinds map[string]int `json:"error_kinds,omitempty"`

	// Allocations is the tracker snapshot taken after the array was destroyed.
	Allocations dynarray.TrackerStats `json:"allocations"`
}

// RunOptions configures a scenario run.
type RunOptions struct {
	// Logger is handed to the array. If nil, slog.Default() is used.
	Logger *slog.Logger
}

// Validate reports structural problems in a scenario before it is run.
func (s *Scenario) Validate() error {
	if s.CreateError != "" {
		if !isKnownKind(s.CreateError) {
			return fmt.Errorf("create_error: unknown error kind %q", s.CreateError)
		}
		return nil
	}
	for i, step := range s.Steps {
		switch step.Op {
		case OpAppend, OpInsert, OpRead, OpRemove, OpPrint:
		case "":
			return fmt.Errorf("step %d has empty or missing 'op' field", i)
		default:
			return fmt.Errorf("step %d: unknown op %q", i, step.Op)
		}
		if step.Error != "" && !isKnownKind(step.Error) {
			return fmt.Errorf("step %d: unknown error kind %q", i, step.Error)
		}
		if step.Want != nil && step.Op != OpRead {
			return fmt.Errorf("step %d: 'want' is only valid for %s", i, OpRead)
		}
	}
	return nil
}

// Run executes the scenario against a new array and destroys it afterwards.
func Run(s *Scenario, opts RunOptions) *Result {
	res := &Result{
		Name:       s.Name,
		Path:       s.Path,
		ErrorKinds: make(map[string]int),
	}

	if err := s.Validate(); err != nil {
		res.Message = fmt.Sprintf("Invalid scenario: %v", err)
		res.Details = []string{err.Error()}
		return res
	}

	tracker := &dynarray.Tracker{}
	arr, err := dynarray.NewWithOptions(s.Capacity, dynarray.Options{
		Logger:  opts.Logger,
		Tracker: tracker,
	})
	if err != nil {
		kind := ErrorKind(err)
		res.ErrorKinds[kind]++
		if s.CreateError == kind {
			res.Success = true
			res.Message = fmt.Sprintf("Got expected error: %v", err)
			return res
		}
		res.Message = "Create failed"
		res.Details = []string{fmt.Sprintf("create with capacity %d: unexpected error: %v", s.Capacity, err)}
		return res
	}
	if s.CreateError != "" {
		arr.Destroy()
		res.Message = "Create succeeded"
		res.Details = []string{fmt.Sprintf("create with capacity %d: expected %s error", s.Capacity, s.CreateError)}
		return res
	}

	for i, step := range s.Steps {
		res.Steps++
		if detail := applyStep(arr, step, res); detail != "" {
			res.Details = append(res.Details, fmt.Sprintf("step %d (%s): %s", i, step.Op, detail))
		}
	}
	res.Details = append(res.Details, checkExpectation(arr, s.Expect)...)

	arr.Destroy()
	res.Allocations = tracker.Stats()
	if elements, buffers := tracker.Live(); elements != 0 || buffers != 0 {
		res.Details = append(res.Details, fmt.Sprintf("leak after destroy: %d elements, %d buffers", elements, buffers))
	}

	res.Success = len(res.Details) == 0
	if res.Success {
		res.Message = fmt.Sprintf("All %d steps passed", res.Steps)
	} else {
		res.Message = fmt.Sprintf("Scenario failed: %d problems", len(res.Details))
	}
	return res
}

// applyStep runs one step and returns a description of any mismatch.
func applyStep(arr *dynarray.Array, step Step, res *Result) string {
	var err error
	var got string
	switch step.Op {
	case OpAppend:
		arr.Append(step.Value)
	case OpInsert:
		err = arr.Insert(step.Value, step.Index)
	case OpRead:
		got, err = arr.Read(step.Index)
	case OpRemove:
		err = arr.Remove(step.Value)
	case OpPrint:
		res.Dumps = append(res.Dumps, arr.String())
	}

	if err != nil {
		res.ErrorKinds[ErrorKind(err)]++
	}

	switch {
	case err == nil && step.Error != "":
		return fmt.Sprintf("expected %s error, got success", step.Error)
	case err != nil && step.Error == "":
		return fmt.Sprintf("unexpected error: %v", err)
	case err != nil && ErrorKind(err) != step.Error:
		return fmt.Sprintf("expected %s error, got %v", step.Error, err)
	case err == nil && step.Want != nil && got != *step.Want:
		return fmt.Sprintf("read index %d: expected %q, got %q", step.Index, *step.Want, got)
	}
	return ""
}

func checkExpectation(arr *dynarray.Array, exp *Expectation) []string {
	if exp == nil {
		return nil
	}

	var details []string
	if exp.Elements != nil {
		if got := arr.Elements(); !slices.Equal(got, *exp.Elements) {
			details = append(details, fmt.Sprintf("elements: expected [%s], got [%s]",
				strings.Join(*exp.Elements, ","), strings.Join(got, ",")))
		}
	}
	if exp.Count != nil && arr.Len() != *exp.Count {
		details = append(details, fmt.Sprintf("count: expected %d, got %d", *exp.Count, arr.Len()))
	}
	if exp.Capacity != 0 && arr.Cap() != exp.Capacity {
		details = append(details, fmt.Sprintf("capacity: expected %d, got %d", exp.Capacity, arr.Cap()))
	}
	if exp.MinCapacity != 0 && arr.Cap() < exp.MinCapacity {
		details = append(details, fmt.Sprintf("capacity: expected at least %d, got %d", exp.MinCapacity, arr.Cap()))
	}
	if exp.Dump != "" && arr.String() != exp.Dump {
		details = append(details, fmt.Sprintf("dump: expected %q, got %q", exp.Dump, arr.String()))
	}
	return details
}

// ErrorKind maps an error returned by dynarray to its scenario error kind.
func ErrorKind(err error) string {
	switch {
	case errors.Is(err, dynarray.ErrInvalidArgument):
		return KindInvalidArgument
	case errors.Is(err, dynarray.ErrIndexOutOfRange):
		return KindIndexOutOfRange
	case errors.Is(err, dynarray.ErrNotFound):
		return KindNotFound
	}
	return kindUnknown
}

func isKnownKind(kind string) bool {
	switch kind {
	case KindInvalidArgument, KindIndexOutOfRange, KindNotFound:
		return true
	}
	return false
}
