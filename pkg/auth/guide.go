package auth

import (
	"fmt"
	"io"
	"strings"
)

// WriteTokenGuide prints how to copy the session cookie out of a browser.
func WriteTokenGuide(w io.Writer, cookieName, domain string) {
	rule := strings.Repeat("=", 72)
	fmt.Fprintln(w, rule)
	fmt.Fprintln(w, "Getting your session token")
	fmt.Fprintln(w, rule)
	fmt.Fprintln(w)
	fmt.Fprintf(w, "postscraper signs in by setting the %q cookie on %s.\n", cookieName, domain)
	fmt.Fprintln(w, "The value is passed to the browser unchanged.")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "  1. Log in to the site in your usual browser.")
	fmt.Fprintln(w, "  2. Open developer tools (F12, or Cmd+Option+I on macOS).")
	fmt.Fprintln(w, "  3. Chrome/Edge: Application > Cookies. Firefox: Storage > Cookies.")
	fmt.Fprintf(w, "  4. Select the %s entry and copy the value of %q.\n", domain, cookieName)
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Then either store it:")
	fmt.Fprintln(w, "  postscraper auth login")
	fmt.Fprintln(w, "or export it for a single shell:")
	fmt.Fprintf(w, "  export %s=<token>\n", TokenEnv)
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Treat the token like a password. It expires when you log out.")
	fmt.Fprintln(w, rule)
}
