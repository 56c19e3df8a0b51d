package service

import (
	"net/url"
	"strings"
)

// LinkBuilder builds the URLs sent to clients and designers from the frontend base URL.
type LinkBuilder struct {
	base string
}

func NewLinkBuilder(base string) LinkBuilder {
	return LinkBuilder{base: strings.TrimRight(strings.TrimSpace(base), "/")}
}

// ApprovalLink is the page the client opens to approve or reject a change request.
func (b LinkBuilder) ApprovalLink(clientToken string) string {
	return b.base + "/approve/" + url.PathEscape(clientToken)
}

// MagicLink is the login callback carrying a single-use token.
func (b LinkBuilder) MagicLink(token string) string {
	return b.base + "/auth/callback?token=" + url.QueryEscape(token)
}
