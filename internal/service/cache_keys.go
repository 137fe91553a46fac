package service

// Cache key prefixes for backend reads. Invalidation is explicit and
// prefix-based, so every mutating call names the read keys it dirties.
const (
	// PrefixBazar is the prefix for bazar list caches (bazar:{userID}:{month})
	PrefixBazar = "bazar:"

	// PrefixMeals is the prefix for meal list caches (meals:{userID}:{month})
	PrefixMeals = "meals:"

	// PrefixSummary is the prefix for month summary caches (summary:{month})
	PrefixSummary = "summary:"
)

// UserBazarKey is the cache key for one user's bazar entries in a month.
func UserBazarKey(userID, month string) string {
	return PrefixBazar + userID + ":" + month
}

// UserMealsKey is the cache key for one user's meal entries in a month.
func UserMealsKey(userID, month string) string {
	return PrefixMeals + userID + ":" + month
}

// SummaryKey is the cache key for a month's aggregated summary.
func SummaryKey(month string) string {
	return PrefixSummary + month
}

// BazarWritePrefixes are the cache prefixes dirtied by any bazar
// mutation: the entries themselves plus every summary derived from
// them.
func BazarWritePrefixes() []string {
	return []string{PrefixBazar, PrefixSummary}
}

// MealWritePrefixes are the cache prefixes dirtied by any meal mutation.
func MealWritePrefixes() []string {
	return []string{PrefixMeals, PrefixSummary}
}
