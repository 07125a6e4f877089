// Package severity classifies native fault codes into severity groups.
//
// Codes are the stable integer values used by the host runtime, so they can be
// combined into masks. Group membership is always computed from the code and is
// never stored alongside it.
package severity

import "strings"

// Code is a native fault severity code. Each defined code is a single bit.
type Code int

const (
	CodeError            Code = 1 << iota // 1
	CodeWarning                           // 2
	CodeParse                             // 4
	CodeNotice                            // 8
	CodeCoreError                         // 16
	CodeCoreWarning                       // 32
	CodeCompileError                      // 64
	CodeCompileWarning                    // 128
	CodeUserError                         // 256
	CodeUserWarning                       // 512
	CodeUserNotice                        // 1024
	CodeStrict                            // 2048
	CodeRecoverableError                  // 4096
	CodeDeprecated                        // 8192
	CodeUserDeprecated                    // 16384
)

// CodeAll is the mask of every defined code.
const CodeAll = CodeError | CodeWarning | CodeParse | CodeNotice | CodeCoreError |
	CodeCoreWarning | CodeCompileError | CodeCompileWarning | CodeUserError |
	CodeUserWarning | CodeUserNotice | CodeStrict | CodeRecoverableError |
	CodeDeprecated | CodeUserDeprecated

// Mask returns a Group-independent code mask for the given codes.
func Mask(codes ...Code) Code {
	var m Code
	for _, c := range codes {
		m |= c
	}
	return m
}

// Intersects reports whether c shares any bit with mask.
func (c Code) Intersects(mask Code) bool { return c&mask != 0 }

// Label returns the human readable label of c.
func (c Code) Label() string { return Label(c) }

// Group is a named bitmask over Codes.
type Group struct {
	name string
	mask Code
}

var (
	// Fatal faults stop the current request.
	Fatal = Group{name: "fatal", mask: CodeError | CodeParse | CodeCoreError | CodeCompileError | CodeUserError | CodeRecoverableError}
	// Warning faults flag a potential issue.
	Warning = Group{name: "warning", mask: CodeWarning | CodeCoreWarning | CodeCompileWarning | CodeUserWarning}
	// Notice faults are informational.
	Notice = Group{name: "notice", mask: CodeNotice | CodeUserNotice | CodeStrict}
	// Deprecated faults signal forward-compatibility problems.
	Deprecated = Group{name: "deprecated", mask: CodeDeprecated | CodeUserDeprecated}
	// Custom faults were triggered by application code.
	Custom = Group{name: "custom", mask: CodeUserError | CodeUserWarning | CodeUserNotice | CodeUserDeprecated}
)

// Groups lists every group in precedence order.
var Groups = []Group{Fatal, Warning, Notice, Deprecated, Custom}

// Name returns the group name.
func (g Group) Name() string { return g.name }

// Mask returns the code mask of the group.
func (g Group) Mask() Code { return g.mask }

// Contains reports whether code is a member of g.
func (g Group) Contains(code Code) bool { return code.Intersects(g.mask) }

// Set is the set of groups a code belongs to. A user code is a member of both
// its severity group and Custom.
type Set uint8

const (
	InFatal Set = 1 << iota
	InWarning
	InNotice
	InDeprecated
	InCustom
)

// Has reports whether s includes every flag in other.
func (s Set) Has(other Set) bool { return other != 0 && s&other == other }

// Empty reports whether the code matched no group.
func (s Set) Empty() bool { return s == 0 }

// Primary returns the name of the first matched group in precedence order, or
// "unknown".
func (s Set) Primary() string {
	for i, g := range Groups {
		if s&(1<<i) != 0 {
			return g.name
		}
	}
	return "unknown"
}

// String joins the names of the matched groups with "|".
func (s Set) String() string {
	if s == 0 {
		return "none"
	}
	var names []string
	for i, g := range Groups {
		if s&(1<<i) != 0 {
			names = append(names, g.name)
		}
	}
	return strings.Join(names, "|")
}

// GroupOf computes the group membership of code.
func GroupOf(code Code) Set {
	var s Set
	for i, g := range Groups {
		if g.Contains(code) {
			s |= 1 << i
		}
	}
	return s
}

// IsFatal reports whether code intersects the fatal mask. Unknown codes are
// not fatal.
func IsFatal(code Code) bool { return Fatal.Contains(code) }

var labels = map[Code]string{
	CodeError:            "ERROR",
	CodeWarning:          "WARNING",
	CodeParse:            "PARSE",
	CodeNotice:           "NOTICE",
	CodeCoreError:        "CORE_ERROR",
	CodeCoreWarning:      "CORE_WARNING",
	CodeCompileError:     "COMPILE_ERROR",
	CodeCompileWarning:   "COMPILE_WARNING",
	CodeUserError:        "USER_ERROR",
	CodeUserWarning:      "USER_WARNING",
	CodeUserNotice:       "USER_NOTICE",
	CodeStrict:           "STRICT",
	CodeRecoverableError: "RECOVERABLE_ERROR",
	CodeDeprecated:       "DEPRECATED",
	CodeUserDeprecated:   "USER_DEPRECATED",
}

// Unknown is the label of codes outside the defined set.
const Unknown = "UNKNOWN"

// Label returns the label of a single defined code, or Unknown.
func Label(code Code) string {
	if l, ok := labels[code]; ok {
		return l
	}
	return Unknown
}

// ParseLabel maps a label back to its code.
func ParseLabel(label string) (Code, bool) {
	label = strings.ToUpper(strings.TrimSpace(label))
	for c, l := range labels {
		if l == label {
			return c, true
		}
	}
	return 0, false
}

// Defined returns every defined code in ascending order.
func Defined() []Code {
	out := make([]Code, 0, len(labels))
	for c := CodeError; c <= CodeUserDeprecated; c <<= 1 {
		out = append(out, c)
	}
	return out
}
