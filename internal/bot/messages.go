package bot

// =============================================================================
// General messages
// =============================================================================

const (
	MsgOk            = `Ok!`
	MsgUnexpectedErr = `Unexpected error: %s`
	MsgStartPrompt   = "Send a photo of the item you want to sell."
	MsgHelp          = `
		Send a photo of an item and I will draft an eBay listing for it.

		*Editing*
		/title <text> – set the title
		/description <text> – set the description
		/price <amount> – set the price
		/category – pick a category
		/condition – pick a condition
		You can also just tell me what to change, e.g. "make it 30 dollars".

		*Publishing*
		/publish – publish the listing
		/cancel – discard the draft
		/listings – your recently published listings

		*Account*
		/login – connect your eBay account
		/logout – disconnect it
		/setup – create the inventory location and default policies`
	MsgVersionInfo = "Version: %s\nBuilt: %s"
)

// =============================================================================
// Login flow messages
// =============================================================================

const (
	MsgLoginPrompt          = "Open the link below and sign in to eBay. The link is valid for 10 minutes."
	MsgLoginButton          = "Sign in to eBay"
	MsgLoginSuccess         = "✅ eBay account connected. Send a photo to start a listing."
	MsgLoginFailed          = "Login failed: %s"
	MsgLoginAlreadyLoggedIn = "Your eBay account is already connected. Use /logout to disconnect it."
	MsgLoginRequired        = "Connect your eBay account first with /login"
	MsgLoggedOut            = "eBay account disconnected."
	MsgSessionExpired       = "Your eBay session has expired. Sign in again with /login"
)

// =============================================================================
// Admin command messages
// =============================================================================

const (
	MsgAdminUsage           = "Usage:\n`/admin users add <user_id>`\n`/admin users remove <user_id>`\n`/admin users list`"
	MsgAdminUserAddUsage    = "Usage: `/admin users add <user_id>`"
	MsgAdminUserRemoveUsage = "Usage: `/admin users remove <user_id>`"
	MsgAdminUserInvalidID   = "Invalid user id. Give a number."
	MsgAdminUserAdded       = "✅ User `%d` added."
	MsgAdminUserRemoved     = "🗑 User `%d` removed."
	MsgAdminNoUsers         = "No allowed users."
	MsgAdminAllowedUsers    = "*Allowed users:*\n"
)

// =============================================================================
// Photo and analysis messages
// =============================================================================

const (
	MsgAnalyzingImage        = "Analyzing photo..."
	MsgPhotoAdded            = "Photo added! %s in total."
	MsgTooManyPhotos         = "A listing can have at most %d photos."
	MsgImageAnalysisNotAvail = "Image analysis is not available"
	MsgImageDownloadFailed   = "Error: could not download the photo"
	MsgAnalysisRecovered     = "⚠️ I could not read the item details reliably. Check the draft below and fix it with the edit commands."
	MsgPhotosRemoved         = "Photos removed."
)

// =============================================================================
// Draft editing messages
// =============================================================================

const (
	MsgNoActiveListing   = "No active listing. Send a photo first."
	MsgTitleUsage        = "Usage: `/title <new title>`"
	MsgDescriptionUsage  = "Usage: `/description <new description>`"
	MsgPriceUsage        = "Usage: `/price <amount>`, e.g. `/price 24.99`"
	MsgPriceInvalid      = "That is not a valid price. Give a positive amount like `24.99`."
	MsgTitleTooLong      = "ℹ️ eBay titles are limited to %d characters. The title will be shortened when published."
	MsgSelectCategory    = "Select a category"
	MsgSelectCondition   = "Select the item's condition"
	MsgCategorySelected  = "Category: *%s*"
	MsgConditionSelected = "Condition: *%s*"
	MsgChangesApplied    = "✓ Changes applied:\n- %s"
	MsgChangeTitle       = "Title: %s"
	MsgChangeDescription = "Description updated"
	MsgChangePrice       = "Price: %s → %s"
	MsgChangeCategory    = "Category: %s"
	MsgChangeCondition   = "Condition: %s"
	MsgEditNotUnderstood = "I did not understand what to change. Use /title, /description or /price, or send a photo to start a new listing."
)

const draftSummaryFmt = `*Listing draft*
📦 *Title:* %s
📝 *Description:* %s
🏷 *Category:* %s
✨ *Condition:* %s
💰 *Price:* %s
📷 *Photos:* %d`

const (
	BtnPublish = "✅ Publish"
	BtnCancel  = "❌ Cancel"
)

// =============================================================================
// Publish messages
// =============================================================================

const (
	MsgPublishing       = "⏳ Publishing to eBay..."
	MsgPublished        = "🎉 Listed on eBay!\n%s\n\nSKU: `%s` (via %s)"
	MsgPublishFailed    = "❌ Publishing failed: %s"
	MsgDraftInvalid     = "The listing is not complete:\n%s"
	MsgUploadFailed     = "❌ None of the photos could be uploaded, so nothing was listed.\n%s"
	MsgConfigMissing    = "The bot is missing configuration: %s"
	MsgUpstreamFailed   = "eBay rejected the request (%s, status %d):\n`%s`"
	MsgAllStrategiesErr = "❌ eBay rejected the listing with every publishing method:\n%s"
)

// =============================================================================
// Account and lookup messages
// =============================================================================

const (
	MsgSetupRunning    = "⏳ Setting up your eBay seller account..."
	MsgSetupStepOK     = "✅ %s: `%s`"
	MsgSetupStepFailed = "❌ %s: %s"
	MsgSetupDone       = "Setup complete. You can now publish listings."
	MsgSetupPartial    = "Some setup steps failed. Publishing may still work if the policies exist already."
	MsgCategoriesTitle = "*Common eBay leaf categories:*\n"
	MsgShippingTitle   = "*Shipping services available for selling:*\n"
	MsgNoListings      = "You have not published anything yet."
	MsgListingsTitle   = "*Recently published:*\n"
)
