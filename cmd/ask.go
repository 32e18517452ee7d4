package cmd

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"streamagent/internal/sqlexec"
)

var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Ask a question, or start an interactive session",
	Long: `With an argument, answers a single question and exits. Without one,
starts an interactive session.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := buildRuntime(cmd.Context())
		if err != nil {
			return err
		}
		defer rt.close()

		if len(args) == 1 {
			answerQuestion(cmd, rt, args[0])
			return nil
		}
		return runREPL(cmd, rt)
	},
}

func init() {
	rootCmd.AddCommand(askCmd)
}

func runREPL(cmd *cobra.Command, rt *runtime) error {
	pterm.DefaultBox.WithTitle("Streaming Platform Assistant").Println(
		"Ask questions about users, content, ratings, and more,\n" +
			"in English or Spanish. I'll translate them into SQL,\n" +
			"look up content summaries, and phrase the answer.\n\n" +
			"Type 'help' for example questions.\n" +
			"Type 'quit', 'exit', or 'q' to leave.")

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("\nYour question: ")
		if !scanner.Scan() {
			fmt.Println()
			return scanner.Err()
		}
		input := strings.TrimSpace(scanner.Text())

		switch strings.ToLower(input) {
		case "":
			continue
		case "quit", "exit", "q":
			pterm.Info.Println("Goodbye!")
			return nil
		case "help":
			printExamples()
			continue
		}

		answerQuestion(cmd, rt, input)
	}
}

func answerQuestion(cmd *cobra.Command, rt *runtime, question string) {
	spinner, _ := pterm.DefaultSpinner.Start("Thinking...")
	result := rt.agent.Ask(cmd.Context(), question)
	spinner.Stop()

	if result.SQL != "" {
		pterm.DefaultSection.Println("Generated SQL")
		pterm.Println(result.SQL)
	}

	pterm.DefaultSection.Println("Answer")
	pterm.Println(result.Answer)

	if result.Execution != nil && result.Execution.Success && result.Execution.RowCount > 0 {
		printRows(result.Execution)
	}
}

func printRows(res *sqlexec.Result) {
	pterm.DefaultSection.Println("Query Results")

	table := pterm.TableData{res.Columns}
	for _, row := range res.Rows {
		record := make([]string, len(row))
		for i, v := range row {
			if v == nil {
				record[i] = "NULL"
			} else {
				record[i] = fmt.Sprint(v)
			}
		}
		table = append(table, record)
	}
	_ = pterm.DefaultTable.WithHasHeader().WithData(table).Render()
}

func printExamples() {
	pterm.DefaultSection.Println("Example Questions")
	pterm.DefaultBulletList.WithItems([]pterm.BulletListItem{
		{Level: 0, Text: "¿Cuántos usuarios tenemos registrados?"},
		{Level: 0, Text: "Show me the top 10 movies"},
		{Level: 0, Text: "Películas mejor calificadas"},
		{Level: 0, Text: "What is Aventuras Galácticas about?"},
		{Level: 0, Text: "¿De qué trata la película más vista?"},
		{Level: 0, Text: "Best rated sci-fi movies and their plots"},
	}).Render()
}
