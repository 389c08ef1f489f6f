package batch

import (
	"bytes"
	"context"
	"os"
	"strings"

	"github.com/golang/mock/gomock"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/LynnColeArt/convbench/miopen"
)

var _ = Describe("Validator", func() {
	const (
		forward = "MIOpenDriver conv -n 8 -c 3 -H 224 -W 224 -k 64 -y 7 -x 7 -p 3 -q 3 -u 2 -v 2 -l 1 -j 1 -m conv -g 1 -F 1 -t 1"
		bwdData = "MIOpenDriver conv -n 8 -c 3 -H 224 -W 224 -k 64 -y 7 -x 7 -p 3 -q 3 -u 2 -v 2 -l 1 -j 1 -m conv -g 1 -F 2 -t 1"
		bwdWt   = "MIOpenDriver conv -n 8 -c 3 -H 224 -W 224 -k 64 -y 7 -x 7 -p 3 -q 3 -u 2 -v 2 -l 1 -j 1 -m conv -g 1 -F 4 -t 1"
		noLog   = "MIOpenDriver conv -n 1 -c 1 -k 1 -H 4 -W 4 -y 1 -x 1"
	)

	var (
		mockCtrl *gomock.Controller
		runner   *MockRunner
		out      *bytes.Buffer
		logDir   string
		v        *Validator
	)

	toolOutput := func(cmd string) string {
		d := miopen.Parse(cmd)
		return strings.Join([]string{
			"=== Parsing MIOpenDriver command ===",
			d.String(),
			miopen.LogLine(d, miopen.Forward),
			"Forward time: 0.1 ms",
			miopen.LogLine(d, miopen.BackwardData),
			miopen.LogLine(d, miopen.BackwardWeights),
			"Backward time: 0.2 ms",
		}, "\n")
	}

	BeforeEach(func() {
		mockCtrl = gomock.NewController(GinkgoT())
		runner = NewMockRunner(mockCtrl)
		out = new(bytes.Buffer)
		logDir = tempDir()
		v = &Validator{Runner: runner, Script: "./convrun", LogDir: logDir, Out: out}
	})

	AfterEach(func() {
		mockCtrl.Finish()
	})

	It("should find logged commands and skip backward ones", func() {
		runner.EXPECT().
			Run(gomock.Any(), "./convrun", []string{"--cmd", forward}, Env()).
			Return(toolOutput(forward), nil)
		runner.EXPECT().
			Run(gomock.Any(), "./convrun", []string{"--cmd", noLog}, Env()).
			Return("Forward time: 0.1 ms\n", nil)

		verdicts := v.Run(context.Background(), []string{forward, bwdData, bwdWt, noLog})

		Expect(verdicts).To(HaveLen(4))
		Expect(verdicts[0].Match).To(Equal(0))
		Expect(verdicts[0].Logged).To(Equal(3))
		Expect(verdicts[1].Skipped).To(BeTrue())
		Expect(verdicts[2].Skipped).To(BeTrue())
		Expect(verdicts[3].Match).To(Equal(-1))
		Expect(verdicts[3].Logged).To(BeZero())

		Expect(out.String()).To(ContainSubstring("=== Testing command #0 ==="))
		Expect(out.String()).To(ContainSubstring("=== Testing command #3 ==="))
		Expect(out.String()).NotTo(ContainSubstring("#1 ==="))
		Expect(out.String()).To(ContainSubstring("Match found at log entry #0"))
		Expect(out.String()).To(ContainSubstring("Original command NOT found in log"))

		entries, err := os.ReadDir(logDir)
		Expect(err).NotTo(HaveOccurred())
		Expect(entries).To(BeEmpty())
	})

	It("should keep logs when asked", func() {
		v.KeepLogs = true
		runner.EXPECT().
			Run(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
			Return(toolOutput(forward), nil)

		v.Run(context.Background(), []string{forward})

		entries, err := os.ReadDir(logDir)
		Expect(err).NotTo(HaveOccurred())
		Expect(entries).To(HaveLen(1))
		Expect(entries[0].Name()).To(HaveSuffix(".log"))
		Expect(out.String()).To(ContainSubstring("Log kept at"))
	})

	It("should only skip backward driver commands", func() {
		Expect(SkipCommand(forward)).To(BeFalse())
		Expect(SkipCommand(bwdData)).To(BeTrue())
		Expect(SkipCommand(bwdWt)).To(BeTrue())
		Expect(SkipCommand(noLog)).To(BeFalse())
	})

	It("should pass the logging environment to the tool", func() {
		env := Env()
		Expect(env).To(ContainElement("MIOPEN_ENABLE_LOGGING_CMD=1"))
		Expect(env).To(ContainElement("MIOPEN_DEBUG_FORCE_IMMED_MODE_FALLBACK=1"))
	})
})
