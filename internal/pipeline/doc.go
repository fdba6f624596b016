// Package pipeline sequences the bootstrap stages.
//
// A [Pipeline] owns the collaborators for one run (the process runner, the
// filesystem, the logger and the terminal [Reporter]) and exposes one
// method per stage:
//
//   - [Pipeline.SetupLinker] clones and builds sbpf-linker, then wires it
//     into the project's cargo config.
//   - [Pipeline.SetupCompiler] clones the compiler, pins its LLVM submodule
//     to the fork, commits the pointer, builds the compiler and links the
//     result into rustup.
//   - [Pipeline.Setup] runs both and prints usage hints.
//   - [Pipeline.Build] builds the downstream project with the registered
//     toolchain.
//
// Steps run strictly in order and the first failure aborts the stage. No
// step is rolled back; every step is safe to repeat, so rerunning a stage
// after a failure resumes from whatever state was left behind.
//
// # Usage
//
//	p, _ := pipeline.NewPipeline(pipeline.Config{
//	    Spec:  toolchain.DefaultSpec(),
//	    Paths: paths,
//	}, pipeline.WithLogger(logger))
//	if err := p.Setup(ctx); err != nil {
//	    return err
//	}
package pipeline
