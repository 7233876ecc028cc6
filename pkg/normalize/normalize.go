// Copyright (c) 2026 Credo. All rights reserved.
// Author: mahir.labib.dev@gmail.com

/*
Package normalize canonicalizes user-supplied identifiers before storage or lookup.

Email uniqueness in Credo is case-insensitive, so every path that touches an
email (registration, sign-in, OTP issue/verify) must agree on a single
canonical form. Centralizing it here keeps "Alice@X.com" and "alice@x.com"
from becoming two accounts.
*/
package normalize

import (
	"strings"

	"golang.org/x/text/secure/precis"
)

// Email lowercases and trims an email address.
//
// The local part is folded with the PRECIS UsernameCaseMapped profile so
// Unicode mailboxes fold consistently; if the profile rejects the input
// (empty or disallowed code points), plain lowercasing is used and the
// validator rejects malformed addresses later.
func Email(email string) string {
	trimmed := strings.TrimSpace(email)

	at := strings.LastIndex(trimmed, "@")
	if at <= 0 {
		return strings.ToLower(trimmed)
	}

	local, domain := trimmed[:at], trimmed[at+1:]
	folded, err := precis.UsernameCaseMapped.String(local)
	if err != nil {
		folded = strings.ToLower(local)
	}

	return folded + "@" + strings.ToLower(domain)
}

// Name trims surrounding whitespace from a display name.
func Name(name string) string {
	return strings.TrimSpace(name)
}
