// Package contracts defines the message schemas shared between the booking
// platform (producer side) and the notification consumer. Field names follow
// the camelCase wire convention of the platform's JSON payloads.
package contracts
