// Package main Sports Club Server API
//
//	@title						Sports Club Server API
//	@version					1.0
//	@description				Race registrations, memberships, coaching, training content and shop orders paid with mobile money.
//
//	@contact.name				Sports Club Support
//	@contact.email				support@sportsclub.example
//
//	@host						localhost:8080
//	@BasePath					/api/v1
//
//	@securityDefinitions.apikey	BearerAuth
//	@in							header
//	@name						Authorization
//	@description				Bearer token authentication. Format: "Bearer {token}"
//
//	@tag.name					Registration
//	@tag.description			Race registrations
//
//	@tag.name					Membership
//	@tag.description			Club memberships and reviews
//
//	@tag.name					CourseBooking
//	@tag.description			Coaching course bookings
//
//	@tag.name					TrainingPackage
//	@tag.description			Training program package purchases
//
//	@tag.name					InjurySolution
//	@tag.description			Injury exercise solution purchases
//
//	@tag.name					ProductOrder
//	@tag.description			Shop orders
//
//	@tag.name					payments
//	@tag.description			Mobile money initiation and reconciliation
package main
