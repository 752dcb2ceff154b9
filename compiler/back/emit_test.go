package back

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEmitSmoke(t *testing.T) {
	asm := compileModule(t, `
int add(int a, int b) {
	return a + b;
}
`)

	assert.Contains(t, asm, ".globl add")
	assert.Contains(t, asm, "add:")
	assert.Contains(t, asm, "pushq %rbp")
	assert.Contains(t, asm, "movq %rsp, %rbp")
	assert.Contains(t, asm, "addl")
	assert.Contains(t, asm, "ret")
}

func TestEmitComparisonAndBranch(t *testing.T) {
	asm := compileModule(t, `
int max(int a, int b) {
	if (a > b)
		return a;
	return b;
}
`)

	assert.Contains(t, asm, "cmpl")
	assert.Contains(t, asm, "setg %al")
	assert.Contains(t, asm, "testb %al, %al")
	assert.Contains(t, asm, "jne .Lmax_")
}

func TestEmitUnsignedComparison(t *testing.T) {
	asm := compileModule(t, `
int below(unsigned a, unsigned b) {
	return a < b;
}
`)

	assert.Contains(t, asm, "setb %al")
}

func TestEmitCallSysV(t *testing.T) {
	asm := compileModule(t, `
int seven(int a, int b, int c, int d, int e, int f, int g);

int f(void) {
	return seven(1, 2, 3, 4, 5, 6, 7);
}
`)

	// the first six integer arguments in registers, the seventh on
	// the stack
	for _, reg := range []string{"%edi", "%esi", "%edx", "%ecx", "%r8d", "%r9d"} {
		assert.Contains(t, asm, reg)
	}

	assert.Contains(t, asm, "pushq %rax")
	assert.Contains(t, asm, "call seven")
}

func TestEmitVariadicVectorCount(t *testing.T) {
	asm := compileModule(t, `
int printf(int *fmt, ...);

int f(int *fmt, double d) {
	return printf(fmt, d);
}
`)

	// one vector argument goes to al for the variadic callee
	assert.Contains(t, asm, "movl $1, %eax")
	assert.Contains(t, asm, "%xmm0")
	assert.Contains(t, asm, "call printf")
}

func TestEmitSwitchChain(t *testing.T) {
	asm := compileModule(t, `
int f(int x) {
	switch (x) {
	case 1: return 10;
	case 2: return 20;
	default: return 30;
	}
}
`)

	assert.Contains(t, asm, "cmpl $1, %eax")
	assert.Contains(t, asm, "cmpl $2, %eax")

	je := strings.Count(asm, "\tje .L")
	assert.Equal(t, 2, je, "one comparison per case")
}

func TestEmitGlobals(t *testing.T) {
	asm := compileModule(t, `
int answer = 42;
long zeroed;
double pi = 3.5;
extern int elsewhere;
int *ptr = &answer;
`)

	assert.Contains(t, asm, ".data")
	assert.Contains(t, asm, "answer:")
	assert.Contains(t, asm, ".long 42")

	assert.Contains(t, asm, ".bss")
	assert.Contains(t, asm, "zeroed:")
	assert.Contains(t, asm, ".zero 8")

	// 3.5 in double bits
	assert.Contains(t, asm, ".quad 4615063718147915776")

	assert.Contains(t, asm, ".quad answer")

	assert.NotContains(t, asm, "elsewhere:")
}

func TestEmitGlobalRipReference(t *testing.T) {
	asm := compileModule(t, `
int counter;

void bump(void) {
	counter = counter + 1;
}
`)

	assert.Contains(t, asm, "counter(%rip)")
}

func TestEmitFloatArith(t *testing.T) {
	asm := compileModule(t, `
double scale(double x) {
	return x * 2.0;
}
`)

	assert.Contains(t, asm, "mulsd")
	assert.Contains(t, asm, "%xmm0")
}
