// Package timezone pins every clock reading and calendar computation to the application
// timezone configured through APP_TIMEZONE. Pickup-day checks compare calendar days in that
// zone, so a booking picked up "today" means today where the fleet operates.
//
// Use IANA names such as "UTC" or "Asia/Jakarta". An unknown name falls back to UTC.
package timezone
