//go:build mage

package main

import (
	"path/filepath"

	"github.com/magefile/mage/mg"
)

type Build mg.Namespace

const shadersDir = "assets/shaders"

var rasterShaders = []string{
	"scene.vert",
	"scene.frag",
}

// Ray-tracing stages target SPIR-V 1.4, which glslc only emits for
// vulkan1.2 and up.
var rayShaders = []string{
	"scene.rgen",
	"scene.rmiss",
	"scene.rchit",
	"scene.rint",
}

// Compiles every GLSL shader to SPIR-V next to its source.
func (Build) Shaders() error {
	for _, src := range rasterShaders {
		in := filepath.Join(shadersDir, src)
		if _, err := executeCmd("glslc", withArgs(in, "-o", in+".spv"), withStream()); err != nil {
			return err
		}
	}
	for _, src := range rayShaders {
		in := filepath.Join(shadersDir, src)
		if _, err := executeCmd("glslc", withArgs("--target-env=vulkan1.2", in, "-o", in+".spv"), withStream()); err != nil {
			return err
		}
	}
	return nil
}

// Builds the prism binary.
func (Build) Binary() error {
	mg.Deps(Build.Shaders)
	if _, err := executeCmd("go", withArgs("build", "-o", "bin/prism", "."), withStream()); err != nil {
		return err
	}
	return nil
}
