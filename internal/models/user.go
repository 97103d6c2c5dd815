package models

const (
	LearnerRole = "learner"
	TrainerRole = "trainer"
	AdminRole   = "admin"
)
