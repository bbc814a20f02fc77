package dto

// JobRecord is one posting as handed over by the external catalog. The full
// record is only ever used transiently during a sync; nothing but the id, the
// embedding and the skill snapshot is kept.
type JobRecord struct {
	ID              string   `json:"id"`
	Title           string   `json:"title"`
	Company         string   `json:"company"`
	Description     string   `json:"description"`
	RequiredSkills  []string `json:"required_skills"`
	PreferredSkills []string `json:"preferred_skills"`
	ExperienceYears int      `json:"experience_years"`
	Location        string   `json:"location"`
	SalaryRange     string   `json:"salary_range"`
	EmploymentType  string   `json:"employment_type"`
}

// SyncResult reports the outcome of one sync pass.
type SyncResult struct {
	Total     int `json:"total"`
	Processed int `json:"processed"`
	Created   int `json:"created"`
	Updated   int `json:"updated"`
	Deleted   int `json:"deleted"`
}
