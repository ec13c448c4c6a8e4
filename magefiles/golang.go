//go:build mage

package main

import (
	"fmt"
	"strings"
	"time"

	semver "github.com/Masterminds/semver/v3"
	"github.com/magefile/mage/mg"
	"github.com/magefile/mage/sh"
	"github.com/pkg/errors"
)

const GO_VERSION_CONSTRAINT = ">= 1.18.0"

func goBinary() string {
	return binaryWithExt("go")
}

func goOutput(args ...string) (string, error) {
	return sh.Output(goBinary(), args...)
}

func goRun(args ...string) error {
	return sh.Run(goBinary(), args...)
}

func goVersion() (*semver.Version, error) {
	output, err := goOutput("version")
	if err != nil {
		return nil, errors.Errorf("error running version cmd: %v", err)
	}
	fields := strings.Fields(output)
	if len(fields) < 3 {
		return nil, errors.Errorf("unexpected version cmd output: %s", output)
	}
	version, err := semver.NewVersion(strings.TrimPrefix(fields[2], "go"))
	if err != nil {
		return nil, errors.Errorf("error parsing version: %v", err)
	}
	return version, nil
}

func goCheck() error {
	version, err := goVersion()
	if err != nil {
		return errors.Errorf("error getting version: %v", err)
	}
	constraint, err := semver.NewConstraint(GO_VERSION_CONSTRAINT)
	if err != nil {
		return errors.Errorf("error parsing constraint: %v", err)
	}
	if !constraint.Check(version) {
		return errors.Errorf("found version %v but it failed constraint %v", version, constraint)
	}
	return nil
}

func gitOutput(args ...string) (string, error) {
	return sh.Output("git", args...)
}

// Build the loadgate binary into ./bin, stamped with the git commit and release version.
func Build() error {
	mg.Deps(goCheck, makeLocalBin)
	timeTaken := time.Now()

	commit, err := gitOutput("rev-parse", "HEAD")
	if err != nil {
		commit = "unknown"
	}
	version, err := gitOutput("describe", "--tags", "--always")
	if err != nil {
		version = "dev"
	}
	const buildPkg = "github.com/armadaproject/loadgate/internal/common/build"
	ldflags := strings.Join([]string{
		fmt.Sprintf("-X %s.ReleaseVersion=%s", buildPkg, version),
		fmt.Sprintf("-X %s.GitCommit=%s", buildPkg, commit),
		fmt.Sprintf("-X %s.BuildTime=%s", buildPkg, time.Now().UTC().Format(time.RFC3339)),
	}, " ")

	err = goRun("build", "-ldflags", ldflags, "-o", binaryWithExt(LocalBin+"/loadgate"), "./cmd/loadgate")
	if err != nil {
		return err
	}
	fmt.Println("Time to build:", time.Since(timeTaken))
	return nil
}
