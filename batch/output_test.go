package batch

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

func ms(v float64) *float64 { return &v }

var _ = Describe("ReadCommands", func() {
	It("should trim lines and skip blank ones", func() {
		cmds, err := ReadCommands(strings.NewReader("  conv -n 1 \n\n\t\nconv -n 2\r\n"))

		Expect(err).NotTo(HaveOccurred())
		Expect(cmds).To(Equal([]string{"conv -n 1", "conv -n 2"}))
	})

	It("should report a missing file", func() {
		_, err := ReadCommandFile(filepath.Join(tempDir(), "absent.txt"))

		Expect(err).To(HaveOccurred())
	})
})

var _ = Describe("CSV", func() {
	rows := []Row{
		{Command: "conv -n 8 -c 3", Forward: ms(1.5), Backward: ms(3.25), F2: ms(1), F4: ms(2.25)},
		{Command: "conv -n 1"},
	}

	It("should write driver rows with empty cells for missing values", func() {
		var buf bytes.Buffer

		Expect(WriteDriverCSV(&buf, rows)).To(Succeed())
		Expect(buf.String()).To(Equal(
			"command,fwd_ms,bwd_ms,f2_ms,f4_ms\n" +
				"conv -n 8 -c 3,1.5,3.25,1,2.25\n" +
				"conv -n 1,,,,\n"))
	})

	It("should write forward/backward rows", func() {
		var buf bytes.Buffer

		Expect(WriteTimingCSV(&buf, rows)).To(Succeed())
		Expect(buf.String()).To(Equal(
			"command,forward_ms,backward_ms\n" +
				"conv -n 8 -c 3,1.5,3.25\n" +
				"conv -n 1,,\n"))
	})

	It("should overwrite an existing file", func() {
		path := filepath.Join(tempDir(), "results.csv")
		Expect(os.WriteFile(path, []byte("stale content that is longer than the table\n"), 0644)).To(Succeed())

		Expect(WriteFile(path, rows[1:], WriteTimingCSV)).To(Succeed())

		data, err := os.ReadFile(path)
		Expect(err).NotTo(HaveOccurred())
		Expect(string(data)).To(Equal("command,forward_ms,backward_ms\nconv -n 1,,\n"))
	})
})

var _ = Describe("Session", func() {
	It("should rewrite the log after every entry", func() {
		session, err := NewSession(filepath.Join(tempDir(), "logs"), "convbench")
		Expect(err).NotTo(HaveOccurred())
		Expect(session.ID).NotTo(BeEmpty())
		Expect(filepath.Base(session.Path())).To(HavePrefix("convbench_"))

		Expect(session.Record(Row{Command: "conv -n 1", Forward: ms(0.5), Backward: ms(1)}, nil)).To(Succeed())
		Expect(session.Record(Row{Command: "conv -c 1"}, errors.New("field n missing"))).To(Succeed())

		data, err := os.ReadFile(session.Path())
		Expect(err).NotTo(HaveOccurred())
		var entries []SessionEntry
		Expect(json.Unmarshal(data, &entries)).To(Succeed())

		Expect(entries).To(HaveLen(2))
		Expect(entries[0].Status).To(Equal("pass"))
		Expect(*entries[0].ForwardMs).To(Equal(0.5))
		Expect(entries[1].Status).To(Equal("fail"))
		Expect(entries[1].Error).To(Equal("field n missing"))
		Expect(entries[1].ForwardMs).To(BeNil())
	})

	It("should discard entries when nil", func() {
		var session *Session

		Expect(session.Record(Row{Command: "conv"}, nil)).To(Succeed())
		Expect(session.Entries()).To(BeEmpty())
		Expect(session.Path()).To(BeEmpty())
	})
})
