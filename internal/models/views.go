package models

// Badge labels shown on feed posts.
const (
	BadgeAvailable = "Available"
	BadgeCompleted = "Completed"
	BadgeVolunteer = "Volunteer"
	BadgePaid      = "Paid"
	NotAvailable   = "N/A"
)

type FeedPost struct {
	ID                 string `json:"id"`
	DateKey            string `json:"dateKey"`
	AuthorID           string `json:"authorId"`
	AuthorName         string `json:"authorName"`
	Caption            string `json:"caption"`
	Category           string `json:"category,omitempty"`
	PostedAt           string `json:"postedAt"`
	IsAvailable        bool   `json:"isAvailable"`
	IsVolunteer        bool   `json:"isVolunteer"`
	AvailabilityBadge  string `json:"availabilityBadge"`
	CompensationBadge  string `json:"compensationBadge"`
	CanEdit            bool   `json:"canEdit"`
	ProfileImageURL    string `json:"profileImageUrl,omitempty"`
	ProfilePlaceholder bool   `json:"profilePlaceholder"`
	PostImageURL       string `json:"postImageUrl,omitempty"`
	PostImageStatus    string `json:"postImageStatus"`
}

type FeedResponse struct {
	Posts   []FeedPost `json:"posts"`
	Count   int        `json:"count"`
	Total   int        `json:"total"`
	HasMore bool       `json:"hasMore"`
}

type IntentResponse struct {
	ID        string `json:"id"`
	Kind      string `json:"kind"`
	DateKey   string `json:"dateKey"`
	PostID    string `json:"postId"`
	Field     string `json:"field,omitempty"`
	Value     *bool  `json:"value,omitempty"`
	State     string `json:"state"`
	Error     string `json:"error,omitempty"`
	CreatedAt string `json:"createdAt"`
}

type UserSearchResult struct {
	UserID      string `json:"userId"`
	Name        string `json:"name"`
	ImageURL    string `json:"imageUrl,omitempty"`
	Placeholder bool   `json:"placeholder"`
}

type UserPost struct {
	ID                 string `json:"id"`
	DateKey            string `json:"dateKey"`
	Caption            string `json:"caption"`
	Category           string `json:"category,omitempty"`
	Date               string `json:"date"`
	IsAvailable        bool   `json:"isAvailable"`
	IsVolunteer        bool   `json:"isVolunteer"`
	ProfileImageURL    string `json:"profileImageUrl,omitempty"`
	ProfilePlaceholder bool   `json:"profilePlaceholder"`
	PostImageURL       string `json:"postImageUrl,omitempty"`
	PostImageStatus    string `json:"postImageStatus"`
}

type AttendanceRow struct {
	Day    string `json:"day"`
	Date   string `json:"date"`
	LogIn  string `json:"logIn"`
	LogOut string `json:"logOut"`
}

type ProfileHeader struct {
	UserID        string   `json:"userId"`
	Name          string   `json:"name"`
	ImageURL      string   `json:"imageUrl,omitempty"`
	ContactNumber string   `json:"contactNumber"`
	Email         string   `json:"email"`
	FacebookLink  string   `json:"facebookLink,omitempty"`
	Skills        []string `json:"skills"`
}
