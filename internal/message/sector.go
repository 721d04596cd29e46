package message

import (
	"fmt"
	"os"
	"strings"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/leakstopper/leakstopper-cli/internal/model"
)

// defaultMaxChars bounds the message body so it fits a single WhatsApp
// or SMS-style notification.
const defaultMaxChars = 400

// SectorProfile shapes the voice of generated messages for one industry.
type SectorProfile struct {
	Persona      string   `yaml:"persona"`
	Tone         string   `yaml:"tone"`
	Keywords     []string `yaml:"keywords"`
	OfferType    string   `yaml:"offer_type"`
	ClosingStyle string   `yaml:"closing_style"`
	CallToAction string   `yaml:"call_to_action"`
	AllowEmoji   bool     `yaml:"allow_emoji"`
}

var defaultProfiles = map[model.Sector]SectorProfile{
	model.SectorPharma: {
		Persona:      "a professional, trustworthy and warm healthcare sector representative",
		Tone:         "Loyalty-themed, professionally courteous, trust-focused, positioned as a solution partner. Warm but formal.",
		Keywords:     []string{"health", "reliability", "quality", "long-term partnership", "solution partner", "supply guarantee"},
		OfferType:    "special pricing terms, priority delivery or additional product support",
		ClosingStyle: "With our best regards, wishing you healthy days.",
		CallToAction: "Call us to arrange a meeting",
		AllowEmoji:   false,
	},
	model.SectorECommerce: {
		Persona:      "a dynamic, customer-obsessed and friendly e-commerce brand",
		Tone:         "Energetic, fun, FOMO-driven and discount-focused. Emoji use is welcome.",
		Keywords:     []string{"deal", "don't miss out", "exclusive discount", "limited time", "free shipping", "gift"},
		OfferType:    "an exclusive discount code (e.g. COMEBACK20), free shipping or a gift item",
		ClosingStyle: "We can't wait to see you again! 🛒✨",
		CallToAction: "Start shopping now →",
		AllowEmoji:   true,
	},
	model.SectorSaaS: {
		Persona:      "a technically fluent, helpful SaaS customer success manager",
		Tone:         "Professional but friendly, value-focused, feature-reminding. Explanatory without shying away from technical detail.",
		Keywords:     []string{"productivity", "new features", "integrations", "automation", "time savings", "ROI"},
		OfferType:    "an extended trial period, free access to premium features or one-on-one technical support",
		ClosingStyle: "We are here to help. Your success is our success.",
		CallToAction: "Request a free demo",
		AllowEmoji:   false,
	},
}

// Profiles resolves sector profiles, overlaying an optional YAML file on
// the built-in defaults. An empty path returns the defaults unchanged.
func Profiles(path string) (map[model.Sector]SectorProfile, error) {
	profiles := make(map[model.Sector]SectorProfile, len(defaultProfiles))
	for sector, p := range defaultProfiles {
		profiles[sector] = p
	}
	if path == "" {
		return profiles, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "message: read profile file %s", path)
	}

	// The YAML has a top-level "sectors" key.
	var wrapper struct {
		Sectors map[string]SectorProfile `yaml:"sectors"`
	}
	if err := yaml.Unmarshal(data, &wrapper); err != nil {
		return nil, eris.Wrap(err, "message: parse profile file")
	}

	for name, override := range wrapper.Sectors {
		sector, err := model.ParseSector(name)
		if err != nil {
			return nil, eris.Wrapf(err, "message: profile file sector %q", name)
		}
		base := profiles[sector]
		profiles[sector] = mergeProfile(base, override)
	}

	return profiles, nil
}

// mergeProfile overlays non-empty override fields on the base profile.
func mergeProfile(base, override SectorProfile) SectorProfile {
	if override.Persona != "" {
		base.Persona = override.Persona
	}
	if override.Tone != "" {
		base.Tone = override.Tone
	}
	if len(override.Keywords) > 0 {
		base.Keywords = override.Keywords
	}
	if override.OfferType != "" {
		base.OfferType = override.OfferType
	}
	if override.ClosingStyle != "" {
		base.ClosingStyle = override.ClosingStyle
	}
	if override.CallToAction != "" {
		base.CallToAction = override.CallToAction
	}
	base.AllowEmoji = base.AllowEmoji || override.AllowEmoji
	return base
}

// ProfileFor returns the built-in profile for a sector.
func ProfileFor(sector model.Sector) SectorProfile {
	return defaultProfiles[sector]
}

// SectorSystemPrompt renders the persona, tone and rules framing shared by
// every customer in one run. Backends with system-prompt support send it
// separately so it can be cached across the run.
func SectorSystemPrompt(profile SectorProfile, companyName string, maxChars int) string {
	company := companyName
	if company == "" {
		company = "our company"
	}
	if maxChars <= 0 {
		maxChars = defaultMaxChars
	}

	var b strings.Builder
	fmt.Fprintf(&b, "You are %s at %s. You write customer win-back messages on behalf of %s.\n", profile.Persona, company, company)

	fmt.Fprintf(&b, "\n## TONE AND APPROACH\n%s\n\nKeywords you may use: %s\n", profile.Tone, strings.Join(profile.Keywords, ", "))
	fmt.Fprintf(&b, "\n## OFFER TYPE\nEnd the message with an offer along these lines: %s\n", profile.OfferType)
	fmt.Fprintf(&b, "\n## CLOSING STYLE\n%s\n", profile.ClosingStyle)

	b.WriteString("\n## RULES\n")
	fmt.Fprintf(&b, "1. The message will be sent over WhatsApp, so keep it short (max %d characters).\n", maxChars)
	b.WriteString("2. Use the customer's name, be personable.\n")
	b.WriteString("3. No aggressive selling. Offer value.\n")
	if profile.AllowEmoji {
		b.WriteString("4. You may use emoji.\n")
	} else {
		b.WriteString("4. Stay professional, avoid heavy emoji use.\n")
	}

	b.WriteString("\nWrite ONLY the message text, no other commentary.")

	return b.String()
}

// CustomerPrompt renders the customer-specific task section.
func CustomerPrompt(c model.LeakedCustomer) string {
	var b strings.Builder
	b.WriteString("## TASK\n")
	if c.LastPurchaseDate.IsZero() {
		fmt.Fprintf(&b, "Our customer %s has no recorded purchase.\n", c.Name)
	} else {
		fmt.Fprintf(&b, "Our customer %s has not purchased since %s.\n", c.Name, c.LastPurchaseDate.Format("January 2, 2006"))
	}
	fmt.Fprintf(&b, "They have been out of touch with us for %d days.\n", c.DaysSinceLastPurchase)
	if c.FavoriteProduct != "" {
		fmt.Fprintf(&b, "They were most recently interested in %q.\n", c.FavoriteProduct)
	}
	if c.TotalRevenue > 0 {
		fmt.Fprintf(&b, "Their lifetime purchases total %.2f.\n", c.TotalRevenue)
	}
	return b.String()
}

// BuildPrompt renders the full single-shot prompt for backends without a
// separate system channel.
func BuildPrompt(req Request, profile SectorProfile) string {
	return SectorSystemPrompt(profile, req.CompanyName, req.MaxChars) + "\n\n" + CustomerPrompt(req.Customer)
}

// BuildSubjectPrompt asks for a short email subject line for a generated
// message.
func BuildSubjectPrompt(messageText string) string {
	excerpt := messageText
	if len(excerpt) > 100 {
		excerpt = excerpt[:100]
	}
	return fmt.Sprintf("Write a short email subject line (max 50 characters) for this message: %q. Write ONLY the subject line.", excerpt+"...")
}
