// Package templates provides the functions available to dockupdate notification templates.
package templates

import (
	"encoding/json"
	"fmt"
	"strings"
	"text/template"

	"github.com/sirupsen/logrus"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Funcs is the function map every notification template is parsed with.
var Funcs = template.FuncMap{
	"ToUpper": strings.ToUpper,
	"ToLower": strings.ToLower,
	"ToJSON":  toJSON,
	"Title":   cases.Title(language.AmericanEnglish).String,
	"Join":    strings.Join,
}

// toJSON renders a value as indented JSON; a marshal failure is rendered as its message.
func toJSON(v any) string {
	bytes, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		logrus.WithError(err).WithField("type", fmt.Sprintf("%T", v)).
			Warn("Failed to marshal JSON in notification template")

		return "failed to marshal JSON in notification template: " + err.Error()
	}

	return string(bytes)
}
