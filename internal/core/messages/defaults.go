package messages

// Template keys known to the catalog.
const (
	KeyStart            = "start"
	KeyHelp             = "help"
	KeyTips             = "tips"
	KeyRateLimit        = "rate_limit"
	KeyInvalidLink      = "invalid_link"
	KeyProcessing       = "processing"
	KeyAffiliateSuccess = "affiliate_success"
	KeyAPIError         = "api_error"
	KeyNetworkError     = "network_error"
	KeyProcessingError  = "processing_error"
	KeyPrivateChatOnly  = "private_chat_only"
	KeyBotPaused        = "bot_paused"
)

// defaultTemplates are the built-in reply templates. Stored overrides
// take precedence per key; deleting an override reverts to these.
var defaultTemplates = map[string]string{
	KeyStart: "👋 Hi! Send me an AliExpress product link and I'll reply with " +
		"an affiliate version of it.",
	KeyHelp: "🤖 Send a message containing an AliExpress product link. " +
		"I'll extract it, convert it, and reply with the affiliate link. " +
		"Use /tips for advice on which links work best.",
	KeyTips: "💡 Full product links (aliexpress.com/item/...) convert most " +
		"reliably. Shortened share links are supported but take a moment " +
		"longer to resolve.",
	KeyRateLimit: "⏳ You've reached your request limit. Try again in " +
		"{retry_after}.",
	KeyInvalidLink: "❌ I couldn't find a valid AliExpress product link in " +
		"that message. Send a link like https://www.aliexpress.com/item/1234567890.html",
	KeyProcessing:       "🔄 Working on your link...",
	KeyAffiliateSuccess: "✅ Here's your affiliate link:\n{affiliate_url}",
	KeyAPIError: "❌ The affiliate service rejected this link. It may not be " +
		"eligible for the affiliate program.",
	KeyNetworkError: "⚠️ I couldn't reach the affiliate service. Please try " +
		"again in a moment.",
	KeyProcessingError: "⚠️ Something went wrong while processing your link. " +
		"Please try again.",
	KeyPrivateChatOnly: "🔒 I only work in private chats. Message me directly.",
	KeyBotPaused:       "⏸️ I'm temporarily paused for maintenance. Back soon.",
}

// DefaultKeys returns the known template keys in sorted order.
func DefaultKeys() []string {
	return []string{
		KeyAffiliateSuccess,
		KeyAPIError,
		KeyBotPaused,
		KeyHelp,
		KeyInvalidLink,
		KeyNetworkError,
		KeyPrivateChatOnly,
		KeyProcessing,
		KeyProcessingError,
		KeyRateLimit,
		KeyStart,
		KeyTips,
	}
}
