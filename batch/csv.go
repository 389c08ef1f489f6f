package batch

import (
	"encoding/csv"
	"io"
	"os"
	"strconv"
)

// Table headers.
var (
	TimingHeader = []string{"command", "forward_ms", "backward_ms"}
	DriverHeader = []string{"command", "fwd_ms", "bwd_ms", "f2_ms", "f4_ms"}
)

func cell(v *float64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'f', -1, 64)
}

// WriteTimingCSV writes forward/backward rows. Missing values are empty cells.
func WriteTimingCSV(w io.Writer, rows []Row) error {
	cw := csv.NewWriter(w)
	cw.Write(TimingHeader)
	for _, r := range rows {
		cw.Write([]string{r.Command, cell(r.Forward), cell(r.Backward)})
	}
	cw.Flush()
	return cw.Error()
}

// WriteDriverCSV writes driver batch rows with the F2 and F4 components.
func WriteDriverCSV(w io.Writer, rows []Row) error {
	cw := csv.NewWriter(w)
	cw.Write(DriverHeader)
	for _, r := range rows {
		cw.Write([]string{r.Command, cell(r.Forward), cell(r.Backward), cell(r.F2), cell(r.F4)})
	}
	cw.Flush()
	return cw.Error()
}

// WriteFile creates or truncates path and writes rows with write.
func WriteFile(path string, rows []Row, write func(io.Writer, []Row) error) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := write(f, rows); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
