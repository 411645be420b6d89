package ui

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/dustin/go-humanize"

	"reshare/internal/coordinator"
	"reshare/pkg/types"
)

const dateLayout = "Jan 02, 15:04"

// ConsoleUI implements simple console-based interactive UI
type ConsoleUI struct {
	in  io.Reader
	out io.Writer
}

// NewConsoleUI creates a console UI on stdin and stdout
func NewConsoleUI() *ConsoleUI {
	return NewConsoleUIWith(os.Stdin, os.Stdout)
}

// NewConsoleUIWith creates a console UI on the given streams
func NewConsoleUIWith(in io.Reader, out io.Writer) *ConsoleUI {
	return &ConsoleUI{in: in, out: out}
}

// ShowMessage displays a message to the user
func (c *ConsoleUI) ShowMessage(message string) {
	fmt.Fprintln(c.out, message)
}

// ShowResults prints one line per file in batch order
func (c *ConsoleUI) ShowResults(results []coordinator.Result) {
	for _, res := range results {
		if res.OK() {
			fmt.Fprintf(c.out, "%s - OK\n", res.Name)
			continue
		}
		fmt.Fprintf(c.out, "%s - FAIL: %v\n", res.Name, res.Err)
	}
}

// ShowFiles prints a listing as a table
func (c *ConsoleUI) ShowFiles(files []types.FileInfo, ns types.Namespace) {
	if len(files) == 0 {
		if ns.IsPublic() {
			fmt.Fprintln(c.out, "No available public files")
		} else {
			fmt.Fprintln(c.out, "No available files for this key phrase")
		}
		return
	}

	tw := tabwriter.NewWriter(c.out, 0, 0, 3, ' ', 0)
	fmt.Fprintln(tw, "NAME\tSIZE\tUPLOAD DATE")
	for _, f := range files {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", f.Name, humanize.Bytes(f.Size), f.UploadDate.Local().Format(dateLayout))
	}
	tw.Flush()
}

// InputServerURL prompts until the user enters a value accepted by validate
func (c *ConsoleUI) InputServerURL(ctx context.Context, validate func(string) error) (string, error) {
	scanner := bufio.NewScanner(c.in)
	inputCh := make(chan string)

	go func() {
		defer close(inputCh)
		for scanner.Scan() {
			select {
			case inputCh <- strings.TrimSpace(scanner.Text()):
			case <-ctx.Done():
				return
			}
		}
	}()

	for {
		fmt.Fprint(c.out, "Enter server addr: ")

		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case addr, ok := <-inputCh:
			if !ok {
				return "", io.ErrUnexpectedEOF
			}
			err := validate(addr)
			if err == nil {
				return addr, nil
			}
			fmt.Fprintf(c.out, "Invalid address: %v. Please enter again.\n", err)
		}
	}
}
