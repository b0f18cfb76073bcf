// Package validate holds format checks for telecom identifiers.
package validate

import (
	"regexp"
	"strings"
)

var (
	digitsOnly    = regexp.MustCompile(`^\d+$`)
	msisdnPattern = regexp.MustCompile(`^\+?\d{7,15}$`)
)

// ICCID accepts 19-20 digit identifiers, ignoring spaces and dashes.
func ICCID(iccid string) bool {
	cleaned := strings.NewReplacer(" ", "", "-", "").Replace(iccid)
	if len(cleaned) < 19 || len(cleaned) > 20 {
		return false
	}
	return digitsOnly.MatchString(cleaned)
}

// IMSI accepts 14-15 digit identifiers.
func IMSI(imsi string) bool {
	if len(imsi) < 14 || len(imsi) > 15 {
		return false
	}
	return digitsOnly.MatchString(imsi)
}

// MSISDN accepts international phone numbers with an optional leading plus.
func MSISDN(msisdn string) bool {
	cleaned := strings.NewReplacer(" ", "", "-", "", "(", "", ")", "").Replace(msisdn)
	return msisdnPattern.MatchString(cleaned)
}

// IMEI accepts 15-digit identifiers with a valid Luhn checksum.
func IMEI(imei string) bool {
	if len(imei) != 15 || !digitsOnly.MatchString(imei) {
		return false
	}

	checksum := 0
	for i := 0; i < 15; i++ {
		digit := int(imei[14-i] - '0')
		if i%2 == 1 {
			digit *= 2
			if digit > 9 {
				digit -= 9
			}
		}
		checksum += digit
	}
	return checksum%10 == 0
}
