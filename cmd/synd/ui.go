package main

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/fatih/color"
	"github.com/sahilm/fuzzy"
	"github.com/shopspring/decimal"
	"golang.org/x/term"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var (
	stdinReader = bufio.NewReader(os.Stdin)
	accent      = color.New(color.FgCyan, color.Bold)
	success     = color.New(color.FgGreen, color.Bold)
	warn        = color.New(color.FgYellow, color.Bold)
	danger      = color.New(color.FgRed, color.Bold)
	neutral     = color.New(color.FgHiWhite)

	numbers = message.NewPrinter(language.English)

	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("14")).Padding(0, 1)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
)

// setupColor turns color off for NO_COLOR and for output that is not a
// terminal.
func setupColor(noColor bool) {
	if noColor || !term.IsTerminal(int(os.Stdout.Fd())) {
		color.NoColor = true
	}
}

func printSuccess(msg string) {
	success.Println(msg)
}

func printWarn(msg string) {
	warn.Println(msg)
}

func printError(msg string) {
	danger.Println(msg)
}

func printInfo(msg string) {
	neutral.Println(msg)
}

func printTitle(msg string) {
	accent.Printf("\n== %s ==\n", msg)
}

func promptRequired(label string) (string, error) {
	for {
		fmt.Printf("%s: ", label)
		text, err := stdinReader.ReadString('\n')
		if err != nil {
			return "", err
		}
		text = strings.TrimSpace(text)
		if text != "" {
			return text, nil
		}
		printWarn(label + " is required.")
	}
}

// promptSecret reads without echo when stdin is a terminal.
func promptSecret(label string) (string, error) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return promptRequired(label)
	}
	for {
		fmt.Printf("%s: ", label)
		raw, err := term.ReadPassword(fd)
		fmt.Println()
		if err != nil {
			return "", err
		}
		if text := strings.TrimSpace(string(raw)); text != "" {
			return text, nil
		}
		printWarn(label + " is required.")
	}
}

func renderTable(headers []string, rows [][]string) {
	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(lipgloss.Color("8"))).
		Headers(headers...).
		Rows(rows...).
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		})
	fmt.Println(t.String())
}

// formatMoney renders d as dollars with thousands separators: $1,234.50.
func formatMoney(d decimal.Decimal) string {
	sign := ""
	if d.IsNegative() {
		sign = "-"
	}
	whole, frac, _ := strings.Cut(d.Abs().StringFixed(2), ".")
	n, err := strconv.ParseInt(whole, 10, 64)
	if err != nil {
		return sign + "$" + whole + "." + frac
	}
	return sign + "$" + numbers.Sprintf("%d", n) + "." + frac
}

func colorizeMoney(d decimal.Decimal) string {
	text := formatMoney(d)
	switch d.Sign() {
	case 1:
		return success.Sprint(text)
	case -1:
		return danger.Sprint(text)
	default:
		return neutral.Sprint(text)
	}
}

func formatCount(v int64) string {
	return numbers.Sprintf("%d", v)
}

type namedResource struct {
	ID   int64
	Name string
}

// matchResource resolves a resource argument. Numeric arguments are taken as
// ids; anything else is fuzzy matched against the names and the best match
// wins.
func matchResource(arg string, options []namedResource) (namedResource, error) {
	arg = strings.TrimSpace(arg)
	if arg == "" {
		return namedResource{}, fmt.Errorf("resource is required")
	}
	if id, err := strconv.ParseInt(arg, 10, 64); err == nil && id > 0 {
		for _, o := range options {
			if o.ID == id {
				return o, nil
			}
		}
		return namedResource{ID: id}, nil
	}
	for _, o := range options {
		if strings.EqualFold(o.Name, arg) {
			return o, nil
		}
	}
	names := make([]string, len(options))
	for i, o := range options {
		names[i] = o.Name
	}
	matches := fuzzy.Find(arg, names)
	if len(matches) == 0 {
		return namedResource{}, fmt.Errorf("no resource matches %q", arg)
	}
	return options[matches[0].Index], nil
}

func parsePositive(arg, label string) (int64, error) {
	v, err := strconv.ParseInt(strings.TrimSpace(arg), 10, 64)
	if err != nil || v <= 0 {
		return 0, fmt.Errorf("invalid %s %q", label, arg)
	}
	return v, nil
}

func truncate(s string, n int) string {
	s = strings.TrimSpace(s)
	if n <= 0 || len(s) <= n {
		return s
	}
	if n <= 3 {
		return s[:n]
	}
	return s[:n-3] + "..."
}
