package models

import "strings"

// Member is a canonical row of the member directory.
type Member struct {
	Name     string
	MemberID string
	Phone    string
}

// NormalizeName lowercases and trims a display name for comparison.
func NormalizeName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// NormalizeMemberID lowercases and trims a member id for comparison.
func NormalizeMemberID(id string) string {
	return strings.ToLower(strings.TrimSpace(id))
}

// NormalizePhone drops the leading quote spreadsheets use to keep the
// leading zero, then trims.
func NormalizePhone(phone string) string {
	p := strings.TrimSpace(phone)
	p = strings.TrimPrefix(p, "'")
	return strings.TrimSpace(p)
}

// SameIdentity reports whether two users collide on member id or phone.
func SameIdentity(a, b User) bool {
	if id := NormalizeMemberID(a.MemberID); id != "" && id == NormalizeMemberID(b.MemberID) {
		return true
	}
	if p := NormalizePhone(a.PhoneNumber); p != "" && p == NormalizePhone(b.PhoneNumber) {
		return true
	}
	return false
}
