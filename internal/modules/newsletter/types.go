package newsletter

// PreferencesDTO mirrors the subscriber's topic flags.
type PreferencesDTO struct {
	Projects  bool `json:"projects"`
	BlogPosts bool `json:"blog_posts"`
}

// SubscribeDTO is the intake payload. Website is a hidden decoy field: real
// visitors never fill it, so a non-empty value marks the submission as
// automated and it is silently discarded.
type SubscribeDTO struct {
	Email       string         `json:"email"   binding:"required"`
	Preferences PreferencesDTO `json:"preferences"`
	Website     string         `json:"website"`
}

// ManageDTO carries an authenticated subscriber mutation (preferences or
// unsubscribe). Every operation requires the email plus a valid token.
type ManageDTO struct {
	Email       string         `json:"email" binding:"required"`
	Token       string         `json:"token" binding:"required"`
	Preferences PreferencesDTO `json:"preferences"`
}

// Content describes a newly published item being announced to subscribers.
type Content struct {
	Topic    string   `json:"topic"` // models.TopicBlogPosts | models.TopicProjects
	Title    string   `json:"title"`
	Excerpt  string   `json:"excerpt"`
	CoverURL string   `json:"cover_url"`
	Tags     []string `json:"tags"`
	Path     string   `json:"path"` // site-relative detail path, e.g. /blog/my-post
}

// Result is the outcome of a fan-out run. Partial failure is reported as
// counts, never as an overall error.
type Result struct {
	Sent   int `json:"sent"`
	Failed int `json:"failed"`
	Total  int `json:"total"`
}
