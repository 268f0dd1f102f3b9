// Package imagereview coordinates the multi-stage review workflow for
// uploaded images: intake validation, metadata enrichment, moderation status
// transitions, and photographer notification.
//
// The package is built around five stateless workers that never call each
// other directly. All coordination happens through the record store and the
// delivery primitives in the messaging subpackage:
//
//	object store -> intake queue -> IntakeValidator -> record store
//	                     |  (rejected uploads)
//	                     v
//	               dead-letter queue -> InvalidObjectReaper -> object delete
//
//	metadata topic -> (attribute filter) -> MetadataApplier -> record store
//	status topic -> StatusTransitionWorker -> record store + notify topic
//	notify topic -> NotificationWorker -> email transport
//
// Delivery is at least once. Messages may arrive duplicated or out of order,
// so every worker applies idempotent, field-disjoint updates: metadata and
// status writers touch disjoint subsets of a record and each write is
// last-write-wins, which removes the need for cross-worker locking.
//
// Backends are pluggable. Each external collaborator (record store, object
// store, email transport, queue, topic) has an in-memory implementation for
// tests and local development and an AWS-backed implementation for
// production (DynamoDB/Postgres, S3, SES, SQS, SNS).
package imagereview
