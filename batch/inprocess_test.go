package batch

import (
	"bytes"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/LynnColeArt/convbench/device"
	"github.com/LynnColeArt/convbench/harness"
	"github.com/LynnColeArt/convbench/miopen"
)

var _ = Describe("InProcessBatch", func() {
	var (
		ctx *device.Context
		out *bytes.Buffer
		b   *InProcessBatch
	)

	BeforeEach(func() {
		var err error
		ctx, err = device.NewContext(0)
		Expect(err).NotTo(HaveOccurred())
		DeferCleanup(ctx.Destroy)

		out = new(bytes.Buffer)
		b = &InProcessBatch{
			Ctx:     ctx,
			Options: harness.Options{Warmup: 1, Repeat: 2},
			Out:     out,
		}
	})

	It("should record failing commands as empty rows and continue", func() {
		session, err := NewSession(tempDir(), "inprocess")
		Expect(err).NotTo(HaveOccurred())
		b.Session = session

		rows := b.Run([]string{
			"conv -n 2 -c 4 -k 8 -H 8 -W 8 -y 3 -x 3 -p 1 -q 1",
			"conv -c 3 -k 8 -H 8 -W 8 -y 3 -x 3",
			"conv -n 1 -c 3 -k 4 -H 8 -W 8 -y 3 -x 3 -g 2",
			"conv -n 1 -c 2 --in_d 4 -H 5 -W 5 -k 2 --fil_d 2 -y 2 -x 2 --spatial_dim 3",
		})

		Expect(rows).To(HaveLen(4))
		Expect(rows[0].Forward).NotTo(BeNil())
		Expect(rows[0].Backward).NotTo(BeNil())
		Expect(rows[1].Forward).To(BeNil())
		Expect(rows[1].Backward).To(BeNil())
		Expect(rows[2].Forward).To(BeNil())
		Expect(rows[3].Forward).NotTo(BeNil())
		Expect(rows[3].Backward).NotTo(BeNil())

		entries := session.Entries()
		Expect(entries).To(HaveLen(4))
		Expect(entries[1].Status).To(Equal("fail"))
		Expect(entries[1].Error).To(ContainSubstring("field n"))

		Expect(out.String()).To(ContainSubstring("[4/4] Running command:"))
		Expect(out.String()).To(ContainSubstring("fwd: None, bwd: None"))

		allocated, _ := ctx.MemoryStats()
		Expect(allocated).To(BeZero())
		Expect(ctx.TrimMemory()).To(BeZero())
	})

	It("should accept an alternative matcher", func() {
		b.Matcher = miopen.TokenMatcher{}

		rows := b.Run([]string{"conv -n 1 -c 1 -k 1 -H 4 -W 4 -y 1 -x 1"})

		Expect(rows[0].Forward).NotTo(BeNil())
	})
})
