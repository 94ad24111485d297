package ui

import (
	"fmt"
	"io"
	"strings"
)

// RefreshTokenBanner renders the success message.
//
// The token sits alone on its own unstyled line so it can be copied or grepped.
func (p *Palette) RefreshTokenBanner(token string) string {
	var b strings.Builder
	b.WriteString(p.box.Render(p.Title("SUCCESS! Here is your Refresh Token:")))
	b.WriteString("\n\n")
	b.WriteString(token)
	b.WriteString("\n\n")
	b.WriteString(p.Help("Store this token securely. You will use it in your main script."))
	b.WriteString("\n")
	return b.String()
}

// ManualURLHint renders the fallback shown when the browser could not be opened, or was not asked to.
func (p *Palette) ManualURLHint(authURL string) string {
	return fmt.Sprintf("%s\n%s\n", p.Warn("Open this URL in your browser to authorize:"), authURL)
}

// WriteBanner writes the refresh token banner for token to w.
func WriteBanner(w io.Writer, token string) error {
	_, err := io.WriteString(w, NewPalette(w).RefreshTokenBanner(token))
	return err
}
