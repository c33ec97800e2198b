// flags.go defines constants for CLI flag names shared across extensions.
//
// Naming convention: Flag<PascalCaseName> where name matches the kebab-case
// CLI flag (e.g., "older-than" -> FlagOlderThan).

package extension

const (
	// Boolean flags

	FlagAll      = "all"      // Include archived or inactive items
	FlagDeleted  = "deleted"  // Show soft-deleted items
	FlagDryRun   = "dry-run"  // Preview without making changes
	FlagFavorite = "favorite" // Mark vault entry as favourite
	FlagHard     = "hard"     // Delete permanently instead of soft-deleting
	FlagLocal    = "local"    // Use local config scope
	FlagPinned   = "pinned"   // Pin a card
	FlagRaw      = "raw"      // Print stored content without rendering
	FlagSnapshot = "snapshot" // Record a page version
	FlagTree     = "tree"     // Tree view output

	// String flags

	FlagAfter       = "after"       // Place after this sibling id
	FlagAuthor      = "book-author" // Book author
	FlagBefore      = "before"      // Place before this sibling id
	FlagBox         = "box"         // Card box id
	FlagCategory    = "category"    // Vault category id
	FlagColor       = "color"       // Hex colour
	FlagContent     = "content"     // Body text
	FlagData        = "data"        // Block JSON data
	FlagDate        = "date"        // YYYY-MM-DD
	FlagDescription = "description" // Free text description
	FlagDue         = "due"         // Task due date
	FlagEnd         = "end"         // Range end date
	FlagFilter      = "filter"      // Named task filter
	FlagFrequency   = "frequency"   // Habit frequency
	FlagIcon        = "icon"        // Emoji icon
	FlagISBN        = "isbn"        // Book ISBN
	FlagKB          = "kb"          // Knowledge base id
	FlagModel       = "model"       // AI model name
	FlagMood        = "mood"        // Timeline mood
	FlagName        = "name"        // Display name
	FlagNotes       = "notes"       // Free text notes
	FlagOlderThan   = "older-than"  // Duration threshold
	FlagParent      = "parent"      // Parent page or block id
	FlagPriority    = "priority"    // Task priority
	FlagProject     = "project"     // Project id
	FlagProvider    = "provider"    // AI provider name
	FlagStart       = "start"       // Range start date
	FlagStatus      = "status"      // Status value
	FlagTag         = "tag"         // Tag value (repeatable)
	FlagTime        = "time"        // HH:MM
	FlagTitle       = "title"       // Title
	FlagType        = "type"        // Block, link or note type
	FlagURL         = "url"         // Vault entry URL
	FlagUsername    = "username"    // Vault entry username
	FlagVersions    = "versions"    // Version range (e.g., "3:5")
	FlagWeather     = "weather"     // Timeline weather

	// Integer flags

	FlagCount   = "count"   // Completion count
	FlagLength  = "length"  // Generated password length
	FlagLimit   = "limit"   // Limit number of results
	FlagPage    = "page"    // Book page number
	FlagPages   = "pages"   // Book total pages
	FlagRating  = "rating"  // Book rating
	FlagTarget  = "target"  // Habit target count
	FlagVersion = "version" // Specific version number
)
