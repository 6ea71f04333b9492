package util

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

var (
	IsDebug bool

	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B")).
			Bold(true).
			Underline(true)

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#4ECDC4")).
			Bold(true)

	optionStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#45B7D1")).
			Italic(true)

	exampleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#96CEB4")).
			Italic(true)

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF4757")).
			Bold(true)

	debugErrorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B")).
			Bold(true).
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#FF4757")).
			Padding(1, 2)

	warningStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFA726")).
			Bold(true)
)

// invalidDirChars covers the characters that are unsafe in directory
// names across Windows, macOS and Linux.
var invalidDirChars = regexp.MustCompile(`[\\/:*?"<>|]`)

// SetDebugMode sets the debug mode
func SetDebugMode(debug bool) {
	IsDebug = debug
}

// SanitizeDirName replaces characters that are invalid in directory
// names with underscores so a series title can be used as a folder.
func SanitizeDirName(name string) string {
	cleaned := invalidDirChars.ReplaceAllString(strings.TrimSpace(name), "_")
	if cleaned == "" {
		return "_"
	}
	return cleaned
}

// ErrorHandler returns a stylized error message
func ErrorHandler(err error) string {
	if IsDebug {
		styledHeader := errorStyle.Render("DEBUG ERROR")
		styledError := debugErrorStyle.Render(fmt.Sprintf("%+v", err))
		return fmt.Sprintf("%s\n%s", styledHeader, styledError)
	}

	styledError := errorStyle.Render(fmt.Sprintf("✗ %v", err))
	styledHint := warningStyle.Render("run the program with -debug to see details")
	return fmt.Sprintf("%s\n%s", styledError, styledHint)
}

// Helper prints the help message
func Helper() {
	title := titleStyle.Render("aniload - AnimeUnity batch episode downloader")

	usage := helpStyle.Render("Usage:")
	usageExamples := []string{
		"  aniload                       batch mode, reads series URLs from URLs.txt",
		"  aniload " + exampleStyle.Render("<series url>") + "          download every episode of one series",
		"  aniload " + optionStyle.Render("[options]") + " " + exampleStyle.Render("<series url>"),
	}

	options := helpStyle.Render("Options:")
	optionsList := []string{
		"  " + optionStyle.Render("-start N") + "   first episode number to download",
		"  " + optionStyle.Render("-end N") + "     last episode number to download",
		"  " + optionStyle.Render("-pick") + "      pick a single episode interactively",
		"  " + optionStyle.Render("-debug") + "     enable debug mode with detailed information",
		"  " + optionStyle.Render("-version") + "   show version information",
		"  " + optionStyle.Render("-help, -h") + "  show this help message",
	}

	fmt.Println(title)
	fmt.Println()
	fmt.Println(usage)
	for _, line := range usageExamples {
		fmt.Println(line)
	}
	fmt.Println()
	fmt.Println(options)
	for _, line := range optionsList {
		fmt.Println(line)
	}
	fmt.Println()
}
