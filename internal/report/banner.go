package report

import (
	"io"

	"github.com/fatih/color"
)

const (
	Version     = "v1.0.0"
	ReleaseDate = "December 2024"
)

const bannerArt = `
█▄░█ █▀▀ ▀█▀ █▀ █▀▀ █▀█ █▀█ █▀▀
█░▀█ ██▄ ░█░ ▄█ █▄▄ █▄█ █▀▀ ██▄`

// PrintBanner 启动横幅
func PrintBanner(w io.Writer, useColor bool) {
	blue := color.New(color.FgHiBlue)
	yellow := color.New(color.FgHiYellow)
	if useColor {
		blue.EnableColor()
		yellow.EnableColor()
	} else {
		blue.DisableColor()
		yellow.DisableColor()
	}
	blue.Fprintln(w, bannerArt)
	yellow.Fprintf(w, "NetScopeGo %s (%s)\n\n", Version, ReleaseDate)
}
