// Package domain holds the entities of the referral program and the errors shared by
// storage and the conversation engines.
package domain
