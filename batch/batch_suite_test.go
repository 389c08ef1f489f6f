package batch

import (
	"os"
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

//go:generate mockgen -destination "mock_runner_test.go" -package $GOPACKAGE -write_package_comment=false github.com/LynnColeArt/convbench/batch Runner

func TestBatch(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Batch Suite")
}

// tempDir creates a directory removed after the current spec.
func tempDir() string {
	dir, err := os.MkdirTemp("", "convbench-batch")
	Expect(err).NotTo(HaveOccurred())
	DeferCleanup(os.RemoveAll, dir)
	return dir
}
