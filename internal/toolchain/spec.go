// Package toolchain describes the patched compiler/linker pair and drives
// the external build tools that produce and register it.
package toolchain

import "strconv"

// Spec is the fixed description of the toolchain sources. It is built once
// by DefaultSpec and passed by value; nothing mutates it at runtime.
type Spec struct {
	// LinkerRepo and LinkerBranch locate the sbpf-linker fork.
	LinkerRepo   string
	LinkerBranch string
	// LinkerName is the checkout directory and binary name of the linker.
	LinkerName string

	// CompilerRepo and CompilerBranch locate the rust compiler fork.
	CompilerRepo   string
	CompilerBranch string

	// LLVMRepo is the fork the compiler's LLVM submodule must point at,
	// LLVMBranch the branch checked out inside it.
	LLVMRepo          string
	LLVMBranch        string
	LLVMSubmodulePath string

	// ToolchainName is the rustup toolchain the compiler stage output is linked as.
	ToolchainName string

	// Target is the rustc target triple for the downstream build.
	Target string
	// BuildAlias is the cargo alias that expands to the target-qualified build.
	BuildAlias string
	// StackSize is passed to the BPF backend through the linker.
	StackSize int
	// BootstrapChangeID is the change-id written to the compiler's bootstrap.toml.
	BootstrapChangeID int
	// SubmoduleCommitMessage marks the commit recording the LLVM pointer change.
	SubmoduleCommitMessage string
}

// DefaultSpec returns the toolchain this repository bootstraps.
func DefaultSpec() Spec {
	return Spec{
		LinkerRepo:   "https://github.com/blueshift-gg/sbpf-linker",
		LinkerBranch: "u128_mul_libcall",
		LinkerName:   "sbpf-linker",

		CompilerRepo:   "https://github.com/blueshift-gg/rust",
		CompilerBranch: "BPF_i128_ret",

		LLVMRepo:          "https://github.com/blueshift-gg/llvm-project.git",
		LLVMBranch:        "BPF_i128_ret",
		LLVMSubmodulePath: "src/llvm-project",

		ToolchainName: "stage1",

		Target:                 "bpfel-unknown-none",
		BuildAlias:             "build-bpf",
		StackSize:              4096,
		BootstrapChangeID:      148803,
		SubmoduleCommitMessage: "TMP: update submodule to BPF_i128_ret",
	}
}

// ToolchainSelector returns the "+name" argument cargo uses to pick the
// registered toolchain.
func (s Spec) ToolchainSelector() string {
	return "+" + s.ToolchainName
}

// BuildAliasCommand returns the cargo invocation the build alias expands to.
func (s Spec) BuildAliasCommand() string {
	return "build --release --target " + s.Target
}

// StackSizeArg returns the LLVM argument that sets the BPF stack size.
func (s Spec) StackSizeArg() string {
	return "-bpf-stack-size=" + strconv.Itoa(s.StackSize)
}
