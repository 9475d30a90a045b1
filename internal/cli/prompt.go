package cli

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/rs/zerolog/log"
)

// PromptForInstruction asks for the customize-text instruction until a
// non-blank line is entered. It returns "" when in is exhausted.
func PromptForInstruction(in io.Reader, out io.Writer) string {
	reader := bufio.NewReader(in)
	for {
		fmt.Fprint(out, "Describe the text change (e.g. Replace \"Draft\" with \"Final\"): ")

		input, err := reader.ReadString('\n')
		input = strings.TrimSpace(input)
		if input != "" {
			return input
		}
		if err != nil {
			log.Warn().Err(err).Msg("Failed to read instruction")
			return ""
		}
	}
}
