package batch

import (
	"bytes"
	"context"
	"errors"

	"github.com/golang/mock/gomock"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("ScriptBatch", func() {
	var (
		mockCtrl *gomock.Controller
		runner   *MockRunner
		out      *bytes.Buffer
		b        *ScriptBatch
	)

	BeforeEach(func() {
		mockCtrl = gomock.NewController(GinkgoT())
		runner = NewMockRunner(mockCtrl)
		out = new(bytes.Buffer)
		b = &ScriptBatch{Runner: runner, Script: "./convrun", Out: out}
	})

	AfterEach(func() {
		mockCtrl.Finish()
	})

	It("should scrape forward and backward times", func() {
		runner.EXPECT().
			Run(gomock.Any(), "./convrun", []string{"--cmd", resnetStem}, gomock.Nil()).
			Return("device: cpu:0\nForward time:  0.6211 ms\nBackward time: 1.2500 ms\n", nil)

		rows := b.Run(context.Background(), []string{resnetStem})

		Expect(*rows[0].Forward).To(Equal(0.6211))
		Expect(*rows[0].Backward).To(Equal(1.25))
		Expect(out.String()).To(ContainSubstring("[1/1] Running command:"))
		Expect(out.String()).NotTo(ContainSubstring("Warning"))
	})

	It("should run the script through an interpreter", func() {
		b.Interpreter = "python"
		b.Script = "parse_and_run.py"
		runner.EXPECT().
			Run(gomock.Any(), "python", []string{"parse_and_run.py", "--cmd", "conv -n 1"}, gomock.Nil()).
			Return("Forward time: 1 ms\nBackward time: 2 ms\n", nil)

		rows := b.Run(context.Background(), []string{"conv -n 1"})

		Expect(*rows[0].Backward).To(Equal(2.0))
	})

	It("should dump the raw output when a time is missing", func() {
		runner.EXPECT().
			Run(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
			Return("Forward time: 0.5 ms\nConstructionError: field n\n", errors.New("exit status 1"))
		runner.EXPECT().
			Run(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
			Return("Forward time: 1 ms\nBackward time: 2 ms\n", nil)

		rows := b.Run(context.Background(), []string{"conv -c 1", "conv -n 1"})

		Expect(rows).To(HaveLen(2))
		Expect(*rows[0].Forward).To(Equal(0.5))
		Expect(rows[0].Backward).To(BeNil())
		Expect(rows[1].Backward).NotTo(BeNil())
		Expect(out.String()).To(ContainSubstring("Warning: Failed to parse time from output:\nForward time: 0.5 ms\nConstructionError: field n"))
	})
})
