package model

// Ratings holds one raw rating per platform; an absent rating is zero.
type Ratings struct {
	Codechef              float64 `json:"codechefRating"`
	Codeforces            float64 `json:"codeforcesRating"`
	GeeksforgeeksWeekly   float64 `json:"geeksforgeeksWeeklyRating"`
	GeeksforgeeksPractice float64 `json:"geeksforgeeksPracticeRating"`
	Leetcode              float64 `json:"leetcodeRating"`
	Hackerrank            float64 `json:"hackerrankRating"`
	Pyramid               float64 `json:"pyramidRating"`
}

// Get returns the rating for p; unknown platforms read as zero.
func (r *Ratings) Get(p Platform) float64 {
	switch p {
	case Codechef:
		return r.Codechef
	case Codeforces:
		return r.Codeforces
	case GeeksforgeeksWeekly:
		return r.GeeksforgeeksWeekly
	case GeeksforgeeksPractice:
		return r.GeeksforgeeksPractice
	case Leetcode:
		return r.Leetcode
	case Hackerrank:
		return r.Hackerrank
	case Pyramid:
		return r.Pyramid
	}
	return 0
}

// Set stores v for p and reports whether p is a known platform.
func (r *Ratings) Set(p Platform, v float64) bool {
	switch p {
	case Codechef:
		r.Codechef = v
	case Codeforces:
		r.Codeforces = v
	case GeeksforgeeksWeekly:
		r.GeeksforgeeksWeekly = v
	case GeeksforgeeksPractice:
		r.GeeksforgeeksPractice = v
	case Leetcode:
		r.Leetcode = v
	case Hackerrank:
		r.Hackerrank = v
	case Pyramid:
		r.Pyramid = v
	default:
		return false
	}
	return true
}

// Handles holds the per-platform account names used by the scrapers.
type Handles struct {
	CodechefHandle      string `json:"codechefHandle,omitempty"`
	CodeforcesHandle    string `json:"codeforcesHandle,omitempty"`
	GeeksforgeeksHandle string `json:"geeksforgeeksHandle,omitempty"`
	HackerrankHandle    string `json:"hackerrankHandle,omitempty"`
	LeetcodeHandle      string `json:"leetcodeHandle,omitempty"`
}

// StudentRecord is one roster row with its ratings and derived scores.
type StudentRecord struct {
	HallTicketNo string `json:"hallTicketNo"`
	Name         string `json:"name,omitempty"`
	Branch       string `json:"branch,omitempty"`
	Section      string `json:"section,omitempty"`

	Handles
	Ratings

	// Informational tier columns, each normalized to 0-100.
	PyramidWeeklyRating  float64 `json:"pyramidWeeklyRating"`
	PyramidMonthlyRating float64 `json:"pyramidMonthlyRating"`

	TotalRating float64 `json:"TotalRating"`
	Percentile  float64 `json:"Percentile"`
	Rank        int     `json:"Rank,omitempty"`
}

// Canonicalize rewrites HallTicketNo into its canonical form.
func (s *StudentRecord) Canonicalize() {
	s.HallTicketNo = CanonicalID(s.HallTicketNo)
}

// Handle returns the account name used to look the student up on the judge
// behind p. GeeksforgeeksWeekly and GeeksforgeeksPractice share one handle.
func (h *Handles) Handle(p Platform) string {
	switch p {
	case Codechef:
		return h.CodechefHandle
	case Codeforces:
		return h.CodeforcesHandle
	case GeeksforgeeksWeekly, GeeksforgeeksPractice:
		return h.GeeksforgeeksHandle
	case Hackerrank:
		return h.HackerrankHandle
	case Leetcode:
		return h.LeetcodeHandle
	}
	return ""
}
