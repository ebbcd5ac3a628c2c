package sema

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sysy-lang/sysyc/grammar"
)

func analyze(t *testing.T, source string) []string {
	t.Helper()
	cu, err := grammar.Parse("test.sy", source)
	assert.NoError(t, err, "should parse")
	assert.NotNil(t, cu)

	_, diags := Analyze(cu)
	msgs := make([]string, len(diags))
	for i, d := range diags {
		msgs[i] = d.Message
	}
	return msgs
}

func TestBasicNameResolution(t *testing.T) {
	diags := analyze(t, `
int main() {
    int x = 1;
    return x;
}`)
	assert.Empty(t, diags)
}

func TestUndefinedVariable(t *testing.T) {
	diags := analyze(t, `
int main() {
    return y;
}`)
	assert.Len(t, diags, 1)
	assert.Contains(t, diags[0], "undefined name 'y'")
}

func TestDuplicateDeclaration(t *testing.T) {
	diags := analyze(t, `
int main() {
    int x = 1;
    int x = 2;
    return x;
}`)
	assert.Contains(t, diags, "'x' is already declared in this scope")
}

func TestAssignToConst(t *testing.T) {
	diags := analyze(t, `
int main() {
    const int x = 1;
    x = 2;
    return x;
}`)
	found := false
	for _, d := range diags {
		if d == "cannot assign to 'x': it is declared const" {
			found = true
		}
	}
	assert.True(t, found)
}

func TestMissingMain(t *testing.T) {
	diags := analyze(t, `
int helper() {
    return 0;
}`)
	found := false
	for _, d := range diags {
		if d == "program has no 'int main()' function" {
			found = true
		}
	}
	assert.True(t, found)
}

func TestDivisionByConstantZero(t *testing.T) {
	diags := analyze(t, `
int main() {
    int x = 1 / 0;
    return x;
}`)
	found := false
	for _, d := range diags {
		if d == "division by a constant zero" {
			found = true
		}
	}
	assert.True(t, found)
}

func TestUninitializedUse(t *testing.T) {
	diags := analyze(t, `
int main() {
    int x;
    return x;
}`)
	found := false
	for _, d := range diags {
		if d == "'x' may be used before it is assigned a value" {
			found = true
		}
	}
	assert.True(t, found)
}

func TestBreakOutsideLoop(t *testing.T) {
	diags := analyze(t, `
int main() {
    break;
    return 0;
}`)
	found := false
	for _, d := range diags {
		if d == "'break' outside of any loop" {
			found = true
		}
	}
	assert.True(t, found)
}

func TestArrayConstDimension(t *testing.T) {
	diags := analyze(t, `
const int N = 4;
int arr[N];

int main() {
    arr[0] = 1;
    return arr[0];
}`)
	assert.Empty(t, diags)
}

func TestFunctionForwardReference(t *testing.T) {
	diags := analyze(t, `
int main() {
    return helper();
}

int helper() {
    return 42;
}`)
	assert.Empty(t, diags)
}

func TestCallArgumentCountMismatch(t *testing.T) {
	diags := analyze(t, `
int add(int a, int b) {
    return a + b;
}

int main() {
    return add(1);
}`)
	found := false
	for _, d := range diags {
		if d == "function 'add' expects 2 argument(s), got 1" {
			found = true
		}
	}
	assert.True(t, found)
}
