// Package testutils provides URDF fixtures and file helpers shared by package tests.
package testutils

import (
	"os"
	"path/filepath"
	"testing"

	"go.viam.com/test"
)

// WriteFile writes content to name inside dir and returns the full path.
func WriteFile(tb testing.TB, dir, name, content string) string {
	tb.Helper()
	path := filepath.Join(dir, name)
	test.That(tb, os.WriteFile(path, []byte(content), 0o600), test.ShouldBeNil)
	return path
}

// WriteArm writes the six joint arm fixture to dir and returns its path.
func WriteArm(tb testing.TB, dir string) string {
	tb.Helper()
	return WriteFile(tb, dir, "arm.urdf", ArmURDF)
}

// WritePeg writes the peg tool fixture to dir and returns its path.
func WritePeg(tb testing.TB, dir string) string {
	tb.Helper()
	return WriteFile(tb, dir, "peg.urdf", PegURDF)
}

// WriteGripper writes the gripper tool fixture to dir and returns its path.
func WriteGripper(tb testing.TB, dir string) string {
	tb.Helper()
	return WriteFile(tb, dir, "gripper.urdf", GripperURDF)
}

// WriteBox writes the single link box fixture to dir and returns its path.
func WriteBox(tb testing.TB, dir string) string {
	tb.Helper()
	return WriteFile(tb, dir, "box.urdf", BoxURDF)
}
