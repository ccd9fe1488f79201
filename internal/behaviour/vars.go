package behaviour

import (
	"fmt"
	"strconv"
	"strings"
)

// Behaviour variable names as they appear in submitted form data and in
// persisted steps.
const (
	VarSubmit            = "submit"
	VarFinish            = "finish"
	VarRate              = "rate"
	VarImplicitRate      = "_rate"
	VarComment           = "comment"
	VarStars             = "stars"
	VarSelfComment       = "selfcomment"
	VarSelfCommentFormat = "selfcommentformat"
)

// MaxStars is the highest star rating a student can give.
const MaxStars = 5

// Vars is the typed form of one action's behaviour variables. Flags are
// signalled by presence; optional values are nil when absent.
type Vars struct {
	Submit bool
	Finish bool

	// Rate is set when the student explicitly saved a self-assessment.
	Rate bool

	// Implicit marks a self-assessment recorded because some other action
	// arrived after the attempt was finished (for example navigating away
	// without pressing save). Only the engine sets it.
	Implicit bool

	Stars             *int
	SelfComment       *string
	SelfCommentFormat *int

	// Comment is a plain comment; its presence routes the action.
	Comment *string
}

// VarError reports a behaviour variable that could not be parsed.
type VarError struct {
	Name  string
	Value string
	Err   error
}

func (e *VarError) Error() string {
	return fmt.Sprintf("behaviour var %s=%q: %v", e.Name, e.Value, e.Err)
}

func (e *VarError) Unwrap() error { return e.Err }

// ParseVars converts raw behaviour variables into Vars. Unknown names are
// ignored. Integer variables with an empty value are treated as absent.
func ParseVars(raw map[string]string) (Vars, error) {
	var v Vars
	_, v.Submit = raw[VarSubmit]
	_, v.Finish = raw[VarFinish]
	_, v.Rate = raw[VarRate]
	_, v.Implicit = raw[VarImplicitRate]

	stars, err := parseOptionalInt(raw, VarStars)
	if err != nil {
		return Vars{}, err
	}
	v.Stars = stars

	format, err := parseOptionalInt(raw, VarSelfCommentFormat)
	if err != nil {
		return Vars{}, err
	}
	v.SelfCommentFormat = format

	if c, ok := raw[VarSelfComment]; ok {
		v.SelfComment = &c
	}
	if c, ok := raw[VarComment]; ok {
		v.Comment = &c
	}
	return v, nil
}

func parseOptionalInt(raw map[string]string, name string) (*int, error) {
	s, ok := raw[name]
	if !ok {
		return nil, nil
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return nil, &VarError{Name: name, Value: s, Err: err}
	}
	return &n, nil
}

// Raw returns the variables in their stored string form.
func (v Vars) Raw() map[string]string {
	raw := make(map[string]string)
	for _, name := range []string{
		VarSubmit, VarFinish, VarRate, VarImplicitRate,
		VarComment, VarStars, VarSelfComment, VarSelfCommentFormat,
	} {
		if val, ok := v.Lookup(name); ok {
			raw[name] = val
		}
	}
	return raw
}

// Lookup returns the stored string value of a single variable.
func (v Vars) Lookup(name string) (string, bool) {
	switch name {
	case VarSubmit:
		return flag(v.Submit)
	case VarFinish:
		return flag(v.Finish)
	case VarRate:
		return flag(v.Rate)
	case VarImplicitRate:
		return flag(v.Implicit)
	case VarStars:
		return optionalInt(v.Stars)
	case VarSelfCommentFormat:
		return optionalInt(v.SelfCommentFormat)
	case VarSelfComment:
		return optionalString(v.SelfComment)
	case VarComment:
		return optionalString(v.Comment)
	default:
		return "", false
	}
}

func flag(b bool) (string, bool) {
	if b {
		return "1", true
	}
	return "", false
}

func optionalInt(p *int) (string, bool) {
	if p == nil {
		return "", false
	}
	return strconv.Itoa(*p), true
}

func optionalString(p *string) (string, bool) {
	if p == nil {
		return "", false
	}
	return *p, true
}

// IntPtr and StringPtr build optional values.
func IntPtr(n int) *int { return &n }

func StringPtr(s string) *string { return &s }
