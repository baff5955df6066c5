package handoff

import (
	"strings"
	"time"

	"roleman/aws"
)

// Environment variables managed by the hand-off package. Unset removes
// exactly this set, whether or not a prior set happened in this terminal.
var managedVars = []string{
	"AWS_ACCESS_KEY_ID",
	"AWS_SECRET_ACCESS_KEY",
	"AWS_SESSION_TOKEN",
	"AWS_CREDENTIAL_EXPIRATION",
	"AWS_DEFAULT_REGION",
	"AWS_REGION",
	"AWS_PROFILE",
	"AWS_CONFIG_FILE",
}

// Directive is one shell assignment or removal in a hand-off package.
type Directive struct {
	Name  string
	Value string
	Unset bool
}

// Package is the ordered set of directives delivered to the shell hook for
// one invocation. A fresh package always replaces the previous one for the
// same terminal.
type Package struct {
	Directives []Directive
}

// Export builds the credential package for a selected role. configFile is
// empty unless a profile block was written alongside.
func Export(creds *aws.RoleCredentials, region, profileName, configFile string) Package {
	directives := []Directive{
		{Name: "AWS_ACCESS_KEY_ID", Value: creds.AccessKeyID},
		{Name: "AWS_SECRET_ACCESS_KEY", Value: creds.SecretAccessKey},
		{Name: "AWS_SESSION_TOKEN", Value: creds.SessionToken},
		{Name: "AWS_CREDENTIAL_EXPIRATION", Value: formatExpiration(creds.Expiration)},
		{Name: "AWS_DEFAULT_REGION", Value: region},
		{Name: "AWS_REGION", Value: region},
		{Name: "AWS_PROFILE", Value: profileName},
	}
	if configFile != "" {
		directives = append(directives, Directive{Name: "AWS_CONFIG_FILE", Value: configFile})
	}
	return Package{Directives: directives}
}

// Unset builds a removal-only package covering every managed variable.
func Unset() Package {
	directives := make([]Directive, len(managedVars))
	for i, name := range managedVars {
		directives[i] = Directive{Name: name, Unset: true}
	}
	return Package{Directives: directives}
}

// Render serializes the package as the shell-agnostic directive format the
// hook sources: one `export NAME=value` or `unset NAME` per line.
func (p Package) Render() string {
	var b strings.Builder
	for _, d := range p.Directives {
		if d.Unset {
			b.WriteString("unset " + d.Name + "\n")
			continue
		}
		b.WriteString("export " + d.Name + "=" + d.Value + "\n")
	}
	return b.String()
}

func formatExpiration(expiration time.Time) string {
	return expiration.UTC().Format(time.RFC3339)
}
