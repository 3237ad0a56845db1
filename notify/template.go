package notify

import (
	"fmt"
	"html"
	"strings"

	"github.com/glimte/travel-notify/contracts"
)

// TemplateBuilder renders notification subjects and bodies. Booking
// confirmations are HTML; everything else is plain text.
type TemplateBuilder struct{}

// NewTemplateBuilder creates a TemplateBuilder.
func NewTemplateBuilder() *TemplateBuilder {
	return &TemplateBuilder{}
}

// destinationText joins the destination names for display, skipping blanks.
func destinationText(destinations []string) string {
	var names []string
	for _, d := range destinations {
		if strings.TrimSpace(d) != "" {
			names = append(names, strings.TrimSpace(d))
		}
	}
	if len(names) == 0 {
		return "Not specified"
	}
	return strings.Join(names, ", ")
}

// BookingConfirmation renders the HTML confirmation email.
func (b *TemplateBuilder) BookingConfirmation(msg contracts.BookingMessage) (subject, body string) {
	subject = fmt.Sprintf("Booking Confirmation #%d", msg.BookingID)

	destinations := html.EscapeString(destinationText(msg.Destinations))
	userName := html.EscapeString(msg.UserName)

	body = fmt.Sprintf(`<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="UTF-8" />
    <meta name="viewport" content="width=device-width, initial-scale=1.0" />
    <title>Booking Confirmation</title>
</head>
<body style="margin:0;padding:0;background-color:#0b1412;font-family:'Segoe UI',Arial,sans-serif;color:#f8fafc;">
    <table role="presentation" cellpadding="0" cellspacing="0" width="100%%" style="padding:48px 16px;">
        <tr>
            <td align="center">
                <table role="presentation" cellpadding="0" cellspacing="0" width="560"
                    style="background-color:rgba(11,20,18,0.86);border-radius:24px;overflow:hidden;">
                    <tr>
                        <td style="padding:40px 36px;">
                            <p style="margin:0 0 12px;font-size:14px;letter-spacing:1.5px;text-transform:uppercase;color:#9ae6b4;">Booking Confirmed</p>
                            <h1 style="margin:0 0 16px;font-size:28px;line-height:36px;font-weight:700;">Thank you, %s!</h1>
                            <p style="margin:0 0 28px;font-size:16px;line-height:26px;color:#e2e8f0;">We are thrilled to confirm your stay. Below are the details of your upcoming experience.</p>
                            <table role="presentation" cellpadding="0" cellspacing="0" width="100%%" style="font-size:15px;line-height:24px;color:#f8fafc;">
                                <tr><td style="padding-bottom:12px;"><strong>Booking ID:</strong> #%d</td></tr>
                                <tr><td style="padding-bottom:12px;"><strong>Destinations:</strong> %s</td></tr>
                                <tr><td style="padding-bottom:12px;"><strong>Guests:</strong> %d</td></tr>
                                <tr><td style="padding-bottom:12px;"><strong>Nights:</strong> %d</td></tr>
                                <tr><td style="padding-bottom:12px;"><strong>Total Price:</strong> %.2f</td></tr>
                                <tr><td><strong>Starting Date:</strong> %s</td></tr>
                            </table>
                            <p style="margin:32px 0 0;font-size:15px;line-height:24px;color:#cbd5f5;">Need to adjust anything? Our concierge team is ready to help, just reply to this email.</p>
                        </td>
                    </tr>
                    <tr>
                        <td style="padding:0 36px 36px;text-align:center;color:#94a3b8;font-size:13px;">Travel App · Luxury Suites Crafted for You</td>
                    </tr>
                </table>
            </td>
        </tr>
    </table>
</body>
</html>`,
		userName,
		msg.BookingID,
		destinations,
		msg.Guests,
		msg.Nights,
		msg.TotalPrice,
		msg.BookingDate.String(),
	)

	return subject, body
}

// BookingCancelled renders the plain-text cancellation notice.
func (b *TemplateBuilder) BookingCancelled(msg contracts.BookingMessage) (subject, body string) {
	subject = fmt.Sprintf("Booking Cancelled #%d", msg.BookingID)

	var sb strings.Builder
	fmt.Fprintf(&sb, "Hello %s,\n\n", msg.UserName)
	fmt.Fprintf(&sb, "Your booking #%d has been cancelled.\n\n", msg.BookingID)
	fmt.Fprintf(&sb, "Destination: %s\n\n", destinationText(msg.Destinations))
	sb.WriteString("If you have any questions, please contact our support team.\n\n")
	sb.WriteString("Best regards,\nTravel App Team\n")

	return subject, sb.String()
}

// CancellationRequested renders the acknowledgment for a cancellation
// request.
func (b *TemplateBuilder) CancellationRequested(msg contracts.CancellationMessage) (subject, body string) {
	subject = fmt.Sprintf("Trip Cancellation Request Received - Booking #%d", msg.BookingID)

	var sb strings.Builder
	fmt.Fprintf(&sb, "Hello %s,\n\n", msg.UserName)
	sb.WriteString("We have received your trip cancellation request.\n\n")
	fmt.Fprintf(&sb, "Booking ID: %d\n", msg.BookingID)
	fmt.Fprintf(&sb, "Destination: %s\n", msg.Destination)
	fmt.Fprintf(&sb, "Trip Dates: %s\n\n", tripDates(msg))
	if strings.TrimSpace(msg.Reason) != "" {
		fmt.Fprintf(&sb, "Reason Provided:\n%s\n\n", msg.Reason)
	}
	sb.WriteString("Our team will review your request soon. You will receive an email once a decision has been made.\n\n")
	sb.WriteString("Best regards,\nTravel App Team\n")

	return subject, sb.String()
}

// CancellationDecision renders the outcome email for a reviewed
// cancellation request.
func (b *TemplateBuilder) CancellationDecision(msg contracts.CancellationMessage) (subject, body string) {
	if msg.IsApproved() {
		subject = fmt.Sprintf("Trip Cancellation Approved - Booking #%d", msg.BookingID)
	} else {
		subject = fmt.Sprintf("Trip Cancellation Rejected - Booking #%d", msg.BookingID)
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Hello %s,\n\n", msg.UserName)
	if msg.IsApproved() {
		sb.WriteString("Good news! Your trip cancellation request has been approved.\n\n")
	} else {
		sb.WriteString("We're sorry to inform you that your trip cancellation request has been rejected.\n\n")
	}
	fmt.Fprintf(&sb, "Booking ID: %d\n", msg.BookingID)
	fmt.Fprintf(&sb, "Destination: %s\n", msg.Destination)
	fmt.Fprintf(&sb, "Trip Dates: %s\n\n", tripDates(msg))
	if strings.TrimSpace(msg.AdminComment) != "" {
		fmt.Fprintf(&sb, "Notes from our team:\n%s\n\n", msg.AdminComment)
	}
	sb.WriteString("If you have any questions, please contact our support team.\n\n")
	sb.WriteString("Best regards,\nTravel App Team\n")

	return subject, sb.String()
}

// tripDates formats the stay as "start to end". Both ends are blank when
// the start date is missing.
func tripDates(msg contracts.CancellationMessage) string {
	if msg.TripStartDate.IsZero() {
		return " to "
	}
	end := msg.TripStartDate.AddDays(msg.Nights)
	return fmt.Sprintf("%s to %s", msg.TripStartDate.String(), end.String())
}
