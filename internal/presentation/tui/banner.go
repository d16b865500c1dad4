package tui

import (
	"fmt"

	"github.com/muesli/termenv"
)

// PrintBanner outputs the ASCII art banner for Refract.
func PrintBanner(version string) {
	p := termenv.ColorProfile()
	// Teal gradient, darkening toward the baseline.
	s1 := termenv.String("  ____       __                _   ").Foreground(p.Color("#5eead4"))
	s2 := termenv.String(" |  _ \\ ___ / _|_ __ __ _  ___| |_ ").Foreground(p.Color("#2dd4bf"))
	s3 := termenv.String(" | |_) / _ \\ |_| '__/ _` |/ __| __|").Foreground(p.Color("#14b8a6"))
	s4 := termenv.String(" |  _ <  __/  _| | | (_| | (__| |_ ").Foreground(p.Color("#0d9488"))
	s5 := termenv.String(" |_| \\_\\___|_| |_|  \\__,_|\\___|\\__|").Foreground(p.Color("#0f766e"))
	tag := termenv.String(fmt.Sprintf("   automated refraction engine %s", version)).
		Foreground(p.Color("#94a3b8")).Italic()

	fmt.Println()
	fmt.Println(s1)
	fmt.Println(s2)
	fmt.Println(s3)
	fmt.Println(s4)
	fmt.Println(s5)
	fmt.Println(tag)
	fmt.Println()
}
