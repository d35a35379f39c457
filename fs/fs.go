// Package appfs embeds the assets shipped with the binaries:
// SQL migrations, email templates, the wizard definitions and the password policy assets.
package appfs

import "embed"

//go:embed assets/* migrations/*.sql templates/email/* wizards/*.yaml
var FS embed.FS
