package batch

import (
	"bytes"
	"context"
	"errors"
	"strings"

	"github.com/golang/mock/gomock"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

const resnetStem = "conv -n 8 -c 3 -k 64 -H 224 -W 224 -y 7 -x 7 -p 3 -q 3 -u 2 -v 2"

func driverArgs(cmd, dir string) []string {
	return strings.Fields(cmd + " -F " + dir)[1:]
}

var _ = Describe("DriverBatch", func() {
	var (
		mockCtrl *gomock.Controller
		runner   *MockRunner
		out      *bytes.Buffer
		b        *DriverBatch
	)

	BeforeEach(func() {
		mockCtrl = gomock.NewController(GinkgoT())
		runner = NewMockRunner(mockCtrl)
		out = new(bytes.Buffer)
		b = &DriverBatch{Runner: runner, Out: out}
	})

	AfterEach(func() {
		mockCtrl.Finish()
	})

	It("should report F1 as forward and F2 + F4 as backward", func() {
		gomock.InOrder(
			runner.EXPECT().
				Run(gomock.Any(), "conv", driverArgs(resnetStem, "1"), gomock.Nil()).
				Return("stats: name, fwd, 1.5\n", nil),
			runner.EXPECT().
				Run(gomock.Any(), "conv", driverArgs(resnetStem, "2"), gomock.Nil()).
				Return("GPU Kernel Time Backward Data Conv. Elapsed: 1.25 ms\n", nil),
			runner.EXPECT().
				Run(gomock.Any(), "conv", driverArgs(resnetStem, "4"), gomock.Nil()).
				Return("stats: a, 9.0\nstats: bwdw, 2.0\n", nil),
		)

		rows := b.Run(context.Background(), []string{resnetStem})

		Expect(rows).To(HaveLen(1))
		row := rows[0]
		Expect(row.Command).To(Equal(resnetStem))
		Expect(*row.Forward).To(Equal(1.5))
		Expect(*row.F2).To(Equal(1.25))
		Expect(*row.F4).To(Equal(2.0))
		Expect(*row.Backward).To(Equal(3.25))
		Expect(out.String()).To(ContainSubstring("Backward (F2+F4): 3.25 ms  (F2=1.25, F4=2)"))
	})

	It("should leave backward empty when F4 has no timing", func() {
		runner.EXPECT().
			Run(gomock.Any(), "conv", driverArgs(resnetStem, "1"), gomock.Nil()).
			Return("Elapsed: 0.5 ms", nil)
		runner.EXPECT().
			Run(gomock.Any(), "conv", driverArgs(resnetStem, "2"), gomock.Nil()).
			Return("Elapsed: 0.75 ms", nil)
		runner.EXPECT().
			Run(gomock.Any(), "conv", driverArgs(resnetStem, "4"), gomock.Nil()).
			Return("MIOpen Error: unsupported", errors.New("exit status 1"))

		rows := b.Run(context.Background(), []string{resnetStem})

		Expect(*rows[0].Forward).To(Equal(0.5))
		Expect(*rows[0].F2).To(Equal(0.75))
		Expect(rows[0].F4).To(BeNil())
		Expect(rows[0].Backward).To(BeNil())
		Expect(out.String()).To(ContainSubstring("Backward (F2+F4): None ms"))
	})

	It("should replace an existing direction flag", func() {
		cmd := "./MIOpenDriver conv -n 1 -c 1 -k 1 -H 4 -W 4 -y 1 -x 1 -F 1 -t 1"
		for _, dir := range []string{"1", "2", "4"} {
			args := strings.Fields(strings.Replace(cmd, "-F 1", "-F "+dir, 1))[1:]
			runner.EXPECT().
				Run(gomock.Any(), "./MIOpenDriver", args, gomock.Nil()).
				Return("timeMs: 1", nil)
		}

		rows := b.Run(context.Background(), []string{cmd})

		Expect(*rows[0].Forward).To(Equal(1.0))
		Expect(*rows[0].Backward).To(Equal(2.0))
	})

	It("should keep going after a failing command and log both", func() {
		dir := tempDir()
		session, err := NewSession(dir, "driver")
		Expect(err).NotTo(HaveOccurred())
		b.Session = session

		runner.EXPECT().
			Run(gomock.Any(), "bad", gomock.Any(), gomock.Any()).
			Return("", errors.New("not found")).
			Times(3)
		runner.EXPECT().
			Run(gomock.Any(), "conv", gomock.Any(), gomock.Any()).
			Return("stats: 2", nil).
			Times(3)

		rows := b.Run(context.Background(), []string{"bad -n 1", "conv -n 1"})

		Expect(rows).To(HaveLen(2))
		Expect(rows[0].Forward).To(BeNil())
		Expect(rows[0].Backward).To(BeNil())
		Expect(*rows[1].Backward).To(Equal(4.0))

		entries := session.Entries()
		Expect(entries).To(HaveLen(2))
		Expect(entries[0].Status).To(Equal("fail"))
		Expect(entries[0].Error).To(ContainSubstring("not found"))
		Expect(entries[1].Status).To(Equal("pass"))
	})
})
