package users

import "strings"

// PhoneFromSyntheticEmail recovers a phone number from the legacy
// `<digits>@temp.<domain>` email convention used by the one-time-code
// signup path before the phone column existed. It returns "" for any email
// outside that pattern.
func PhoneFromSyntheticEmail(email string) string {
	local, domain, found := strings.Cut(email, "@")
	if !found || local == "" {
		return ""
	}
	if !strings.HasPrefix(domain, "temp.") || len(domain) == len("temp.") {
		return ""
	}
	for _, r := range local {
		if r < '0' || r > '9' {
			return ""
		}
	}
	return local
}

// ContactPhone returns the number to notify the user on: the explicit
// phone attribute when set, else whatever the legacy convention yields.
func ContactPhone(u User) string {
	if u.Phone != "" {
		return u.Phone
	}
	return PhoneFromSyntheticEmail(u.Email)
}
