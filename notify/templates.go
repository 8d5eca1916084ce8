package notify

import (
	"fmt"

	"github.com/seedleaf/store_backend/models"
	"github.com/shopspring/decimal"
)

const (
	TemplateThankYou            = "thank_you"
	TemplateAdminNotice         = "admin_notice"
	TemplateAffiliateActivation = "affiliate_activation"
)

func thankYouSubject(orderId string) string {
	return "Thanks for your Seedleaf order " + orderId
}

func thankYouBody(orderId string, amount decimal.Decimal) string {
	return fmt.Sprintf(
		"Hi,\n\nWe've received your payment of $%s for order %s. "+
			"We'll start preparing it right away and send tracking details once it ships.\n\n"+
			"The Seedleaf team",
		amount.StringFixed(2), orderId)
}

func activationSubject(aff *models.Affiliate) string {
	return "Your Seedleaf affiliate account is live"
}

func activationBody(aff *models.Affiliate, orderId string) string {
	name := aff.Name
	if name == "" {
		name = "there"
	}
	return fmt.Sprintf(
		"Hi %s,\n\nYour starter kit order %s is paid and your affiliate account is now active.\n"+
			"Your referral code is %s. Share it to start earning commission on every order it brings in.\n\n"+
			"The Seedleaf team",
		name, orderId, aff.Code)
}
