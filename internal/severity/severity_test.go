package severity

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsFatal_MatchesFatalMask(t *testing.T) {
	for _, c := range Defined() {
		assert.Equal(t, c&Fatal.Mask() != 0, IsFatal(c), Label(c))
	}

	undefined := Code(1 << 20)
	assert.False(t, IsFatal(undefined))
	assert.Equal(t, Unknown, Label(undefined))
	assert.True(t, GroupOf(undefined).Empty())
}

func TestIsFatal_Combinations(t *testing.T) {
	assert.True(t, IsFatal(CodeWarning|CodeUserError))
	assert.False(t, IsFatal(CodeWarning|CodeNotice))
	assert.True(t, IsFatal(CodeAll))
}

func TestGroupOf(t *testing.T) {
	tests := []struct {
		code    Code
		want    Set
		primary string
	}{
		{CodeError, InFatal, "fatal"},
		{CodeParse, InFatal, "fatal"},
		{CodeRecoverableError, InFatal, "fatal"},
		{CodeWarning, InWarning, "warning"},
		{CodeCompileWarning, InWarning, "warning"},
		{CodeNotice, InNotice, "notice"},
		{CodeStrict, InNotice, "notice"},
		{CodeDeprecated, InDeprecated, "deprecated"},
		{CodeUserError, InFatal | InCustom, "fatal"},
		{CodeUserWarning, InWarning | InCustom, "warning"},
		{CodeUserNotice, InNotice | InCustom, "notice"},
		{CodeUserDeprecated, InDeprecated | InCustom, "deprecated"},
	}
	for _, tt := range tests {
		t.Run(Label(tt.code), func(t *testing.T) {
			got := GroupOf(tt.code)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.primary, got.Primary())
			assert.True(t, got.Has(tt.want))
		})
	}
}

func TestGroupsPartitionNonCustomCodes(t *testing.T) {
	for _, c := range Defined() {
		n := 0
		for _, g := range []Group{Fatal, Warning, Notice, Deprecated} {
			if g.Contains(c) {
				n++
			}
		}
		assert.Equal(t, 1, n, "code %s must be in exactly one severity group", Label(c))
	}
}

func TestLabels(t *testing.T) {
	assert.Len(t, Defined(), 15)
	for _, c := range Defined() {
		l := Label(c)
		assert.NotEqual(t, Unknown, l)
		back, ok := ParseLabel(l)
		assert.True(t, ok)
		assert.Equal(t, c, back)
	}
	assert.Equal(t, "fatal|custom", GroupOf(CodeUserError).String())
	assert.Equal(t, "none", GroupOf(0).String())
}
