// Copyright 2025 The Rivaas Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package main

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	"github.com/charmbracelet/colorprofile"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	figure "github.com/common-nighthawk/go-figure"
	"golang.org/x/term"

	"rivaas.dev/pathmap/dispatch"
)

var methodStyles = map[string]lipgloss.Style{
	http.MethodGet:     lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Bold(true),
	http.MethodPost:    lipgloss.NewStyle().Foreground(lipgloss.Color("12")).Bold(true),
	http.MethodPut:     lipgloss.NewStyle().Foreground(lipgloss.Color("11")).Bold(true),
	http.MethodDelete:  lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true),
	http.MethodPatch:   lipgloss.NewStyle().Foreground(lipgloss.Color("13")).Bold(true),
	http.MethodHead:    lipgloss.NewStyle().Foreground(lipgloss.Color("14")).Bold(true),
	http.MethodOptions: lipgloss.NewStyle().Foreground(lipgloss.Color("7")).Bold(true),
}

var locatorStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("208")).Bold(true)

// colorWriter downsamples ANSI colors to what w supports. noColor strips them.
func colorWriter(w io.Writer, noColor bool) *colorprofile.Writer {
	cpw := colorprofile.NewWriter(w, os.Environ())
	if noColor {
		cpw.Profile = colorprofile.NoTTY
	}
	return cpw
}

// renderRoutes writes routes as a table. Locators show "*" as their method.
func renderRoutes(w io.Writer, routes []dispatch.Route, width int) {
	if len(routes) == 0 {
		_, _ = fmt.Fprintln(w, "No routes registered")
		return
	}

	rows := make([][]string, 0, len(routes))
	for _, route := range routes {
		method := route.HTTPMethod
		switch style, ok := methodStyles[method]; {
		case method == "":
			method = locatorStyle.Render("*")
		case ok:
			method = style.Render(method)
		}

		rows = append(rows, []string{
			method,
			route.Template,
			route.Resource,
			route.Name,
			orDash(strings.Join(route.Produces, ", ")),
			orDash(strings.Join(route.Consumes, ", ")),
		})
	}

	if file, ok := w.(*os.File); ok {
		if tw, _, err := term.GetSize(int(file.Fd())); err == nil && tw > 0 {
			width = min(width, tw)
		}
	}

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(lipgloss.Color("240"))).
		StyleFunc(func(row, _ int) lipgloss.Style {
			style := lipgloss.NewStyle().Align(lipgloss.Left).Padding(0, 1)
			if row == table.HeaderRow {
				style = style.Bold(true).Foreground(lipgloss.Color("230"))
			}
			return style
		}).
		Headers("Method", "Template", "Resource", "Name", "Produces", "Consumes").
		Rows(rows...).
		Width(max(60, width))

	_, _ = fmt.Fprintln(w, t.Render())
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

// bannerInfo is what the startup banner shows.
type bannerInfo struct {
	service string
	version string
	addr    string
	engine  string
	metrics string // "" when disabled
	tracing string // "" when disabled
}

func printBanner(w io.Writer, info bannerInfo) {
	art := figure.NewFigure(info.service, "", false).Slicify()
	colors := []string{"12", "14", "10", "11"}

	var b strings.Builder
	for _, line := range art {
		if strings.TrimSpace(line) == "" {
			b.WriteString("\n")
			continue
		}
		for i, char := range line {
			style := lipgloss.NewStyle().Foreground(lipgloss.Color(colors[i%len(colors)])).Bold(true)
			b.WriteString(style.Render(string(char)))
		}
		b.WriteString("\n")
	}

	label := lipgloss.NewStyle().Foreground(lipgloss.Color("240")).Width(10)
	value := lipgloss.NewStyle().Bold(true)
	disabled := lipgloss.NewStyle().Foreground(lipgloss.Color("240"))

	displayAddr := info.addr
	if strings.HasPrefix(displayAddr, ":") {
		displayAddr = "0.0.0.0" + displayAddr
	}

	line := func(name, v, color string) {
		if v == "" {
			b.WriteString(label.Render(name) + "  " + disabled.Render("Disabled") + "\n")
			return
		}
		b.WriteString(label.Render(name) + "  " + value.Foreground(lipgloss.Color(color)).Render(v) + "\n")
	}

	b.WriteString("\n")
	line("Version:", info.version, "14")
	line("Address:", "http://"+displayAddr, "10")
	line("Engine:", info.engine, "11")
	line("Metrics:", info.metrics, "13")
	line("Tracing:", info.tracing, "12")

	_, _ = fmt.Fprintln(w, b.String())
}
