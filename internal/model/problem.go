package model

// TestCase is one input/expected pair for a debugging problem
type TestCase struct {
	Input    string `json:"input" bson:"input"`
	Expected string `json:"expected" bson:"expected"`
	IsPublic bool   `json:"isPublic" bson:"isPublic"`
}

// Problem is one round-2 debugging exercise copied into a team record
type Problem struct {
	ID          string     `json:"id" bson:"id"`
	Title       string     `json:"title" bson:"title"`
	Description string     `json:"description" bson:"description"`
	BuggyCode   string     `json:"buggyCode" bson:"buggyCode"`
	Language    string     `json:"language" bson:"language"`
	TestCases   []TestCase `json:"testCases" bson:"testCases"`
	Solved      bool       `json:"solved" bson:"solved"`
	Attempts    int        `json:"attempts" bson:"attempts"`
	Score       int        `json:"score" bson:"score"`
}
