package output

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/abdul-hamid-achik/gocurl/packages/request"
	"github.com/abdul-hamid-achik/gocurl/packages/response"
	"github.com/fatih/color"
	"github.com/tidwall/gjson"
)

// ConsoleFormatter renders one response, or one failure, for the
// terminal. The output mode is read off the request descriptor so the
// renderer and the transfer can never disagree about what was asked
// for.
type ConsoleFormatter struct {
	writer    io.Writer
	errWriter io.Writer
	noColor   bool
	jsonPath  string
}

type ConsoleOption func(*ConsoleFormatter)

func NewConsoleFormatter(opts ...ConsoleOption) *ConsoleFormatter {
	f := &ConsoleFormatter{
		writer:    os.Stdout,
		errWriter: os.Stderr,
	}
	for _, opt := range opts {
		opt(f)
	}
	if f.noColor {
		color.NoColor = true
	}
	return f
}

func WithWriter(w io.Writer) ConsoleOption {
	return func(f *ConsoleFormatter) {
		f.writer = w
	}
}

func WithErrWriter(w io.Writer) ConsoleOption {
	return func(f *ConsoleFormatter) {
		f.errWriter = w
	}
}

func WithNoColor(nc bool) ConsoleOption {
	return func(f *ConsoleFormatter) {
		f.noColor = nc
	}
}

// WithJSONPath makes the formatter print only the value extracted from
// a JSON response body by the given gjson path, replacing every other
// success rendering.
func WithJSONPath(path string) ConsoleOption {
	return func(f *ConsoleFormatter) {
		f.jsonPath = path
	}
}

// FormatResponse renders resp in the mode the descriptor selected:
// silent (body only, nothing when the body went to a file), head-only
// (status and headers), output-file (status, headers and the
// destination path), or the default full rendering. A timing block is
// appended whenever the response carries one.
func (f *ConsoleFormatter) FormatResponse(d *request.Descriptor, resp *response.Response) error {
	if f.jsonPath != "" {
		return f.writeJSONPath(resp)
	}

	switch {
	case d.Silent:
		if d.OutputPath == "" {
			fmt.Fprint(f.writer, resp.BodyString())
		}
	case d.HeadOnly:
		fmt.Fprintln(f.writer, f.statusLine(resp.StatusCode))
		fmt.Fprintln(f.writer)
		f.writeHeaders(resp.Headers)
		f.writeTiming(resp.Timing)
	case d.OutputPath != "":
		fmt.Fprintln(f.writer, f.statusLine(resp.StatusCode))
		fmt.Fprintln(f.writer)
		f.writeHeaders(resp.Headers)
		fmt.Fprintln(f.writer)
		fmt.Fprintf(f.writer, "Body written to %s\n", d.OutputPath)
		f.writeTiming(resp.Timing)
	default:
		fmt.Fprintln(f.writer, f.statusLine(resp.StatusCode))
		fmt.Fprintln(f.writer)
		f.writeHeaders(resp.Headers)
		fmt.Fprintln(f.writer)
		fmt.Fprint(f.writer, resp.BodyString())
		if resp.Timing != nil {
			fmt.Fprintln(f.writer)
		}
		f.writeTiming(resp.Timing)
	}
	return nil
}

// FormatError prints the failure and, when the classifier derived one,
// a remediation hint. Both go to the error writer.
func (f *ConsoleFormatter) FormatError(err error) {
	red := color.New(color.FgRed).SprintFunc()
	fmt.Fprintf(f.errWriter, "%s %v\n", red("Request failed:"), err)

	var re *request.Error
	if errors.As(err, &re) {
		if hint := re.Hint(); hint != "" {
			yellow := color.New(color.FgYellow).SprintFunc()
			fmt.Fprintf(f.errWriter, "%s %s\n", yellow("Hint:"), hint)
		}
	}
}

func (f *ConsoleFormatter) statusLine(code int) string {
	bold := color.New(color.Bold).SprintFunc()
	c := color.New(color.FgGreen)
	switch {
	case code >= 400:
		c = color.New(color.FgRed)
	case code >= 300:
		c = color.New(color.FgYellow)
	}
	return fmt.Sprintf("%s %s", bold("Status:"), c.Sprint(code))
}

func (f *ConsoleFormatter) writeHeaders(lines []string) {
	for _, line := range lines {
		fmt.Fprintln(f.writer, line)
	}
}

// writeTiming appends a blank line and the timing block. The block's
// last line carries no trailing newline, matching the plain rendering.
func (f *ConsoleFormatter) writeTiming(t *response.Timing) {
	if t == nil {
		return
	}
	bold := color.New(color.Bold).SprintFunc()
	fmt.Fprintln(f.writer)
	fmt.Fprintln(f.writer, bold("Timing:"))
	fmt.Fprintf(f.writer, "  DNS lookup:    %8.3fms\n", ms(t.DNS))
	fmt.Fprintf(f.writer, "  Connect:       %8.3fms\n", ms(t.Connect))
	fmt.Fprintf(f.writer, "  TLS handshake: %8.3fms\n", ms(t.TLS))
	fmt.Fprintf(f.writer, "  First byte:    %8.3fms\n", ms(t.FirstByte))
	fmt.Fprintf(f.writer, "  Redirect:      %8.3fms\n", ms(t.Redirect))
	fmt.Fprintf(f.writer, "  Total:         %8.3fms", ms(t.Total))
}

func (f *ConsoleFormatter) writeJSONPath(resp *response.Response) error {
	if len(resp.Body) == 0 {
		return fmt.Errorf("jsonpath: response body is empty or was written to a file")
	}
	result := gjson.GetBytes(resp.Body, f.jsonPath)
	if !result.Exists() {
		return fmt.Errorf("jsonpath %q matched nothing", f.jsonPath)
	}
	fmt.Fprintln(f.writer, result.String())
	return nil
}

func ms(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}
