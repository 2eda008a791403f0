// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package auth

// Decision is the verdict of one authenticator.
type Decision int

const (
	// Cancel means the authenticator has no opinion: it is not configured,
	// the user skipped it, or a side effect failed. The chain moves on.
	// Cancel is the zero value.
	Cancel Decision = iota
	// Accept admits the login and ends the chain.
	Accept
	// Reject refuses the login and ends the chain.
	Reject
)

func (d Decision) String() string {
	switch d {
	case Accept:
		return "accept"
	case Reject:
		return "reject"
	default:
		return "cancel"
	}
}

// Kind identifies one of the fixed authenticators.
type Kind int

const (
	// KindNone is reported when no authenticator decided.
	KindNone Kind = iota
	KindBypass
	KindLocalOrigin
	KindEmail
	KindTOTP
	KindHardwareToken
)

func (k Kind) String() string {
	switch k {
	case KindBypass:
		return "bypass"
	case KindLocalOrigin:
		return "local-origin"
	case KindEmail:
		return "email"
	case KindTOTP:
		return "totp"
	case KindHardwareToken:
		return "hardware-token"
	default:
		return "none"
	}
}

// Order is the evaluation order of the chain.
var Order = []Kind{KindBypass, KindLocalOrigin, KindEmail, KindTOTP, KindHardwareToken}
