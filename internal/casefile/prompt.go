package casefile

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

// Collector reads case details interactively. Reader/writer are injectable so
// tests can drive the prompts without a terminal.
type Collector struct {
	in  *bufio.Reader
	out io.Writer
}

// NewCollector creates a Collector reading prompts from in and writing to out.
func NewCollector(in io.Reader, out io.Writer) *Collector {
	return &Collector{in: bufio.NewReader(in), out: out}
}

// Collect prompts for any case fields missing from defaults and returns the
// completed context. Fields already present in defaults are kept as-is.
func (c *Collector) Collect(defaults Context) (Context, error) {
	ctx := defaults

	if ctx.Analyst == "" {
		name, err := c.ask("Analyst name: ")
		if err != nil {
			return ctx, err
		}
		if name == "" {
			name = "unknown"
		}
		ctx.Analyst = name
	}

	if ctx.Type == "" {
		fmt.Fprintln(c.out, "Case type:")
		for i, ct := range CaseTypes {
			fmt.Fprintf(c.out, "  %d. %s\n", i+1, ct)
		}
		for {
			answer, err := c.ask("Select case type [1]: ")
			if err != nil {
				return ctx, err
			}
			if answer == "" {
				answer = "1"
			}
			ct, err := ParseCaseType(answer)
			if err != nil {
				fmt.Fprintf(c.out, "Invalid choice: %v\n", err)
				continue
			}
			ctx.Type = ct
			break
		}
	}

	if ctx.ThreatActor == "" {
		actor, err := c.ask("Threat actor group (Enter to skip): ")
		if err != nil {
			return ctx, err
		}
		ctx.ThreatActor = actor
	}

	if len(ctx.KnownIOCs) == 0 {
		fmt.Fprintln(c.out, "Known IOCs: paste values separated by commas, semicolons, pipes, or newlines.")
		blob, err := c.ask("IOCs (Enter to skip): ")
		if err != nil {
			return ctx, err
		}
		ctx.KnownIOCs = SplitIOCList(blob)
		if n := len(ctx.KnownIOCs); n > 0 {
			fmt.Fprintf(c.out, "Collected %d IOC(s)\n", n)
			for i, ioc := range ctx.KnownIOCs {
				if i == 5 {
					fmt.Fprintf(c.out, "  ... and %d more\n", n-5)
					break
				}
				fmt.Fprintf(c.out, "  - %s\n", ioc)
			}
		}
	}

	return ctx, nil
}

// ask prints a prompt and reads one trimmed line. io.EOF after a partial or
// empty read is treated as an empty answer so piped input terminates cleanly.
func (c *Collector) ask(prompt string) (string, error) {
	fmt.Fprint(c.out, prompt)
	line, err := c.in.ReadString('\n')
	if err != nil && err != io.EOF {
		return "", fmt.Errorf("read input: %w", err)
	}
	return strings.TrimSpace(line), nil
}
