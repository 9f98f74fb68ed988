// Capturehub - Messaging Media Capture and Catalog
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/capturehub

/*
Package session is the boundary between the messaging session and the
capture pipeline.

The messaging protocol itself runs in a separate adapter process. The adapter
publishes one JSON envelope per received message on the session.messages topic
and one connection update per state change on session.state. Bridge consumes
both topics from a watermill subscriber (JetStream in production, gochannel in
tests) and hands the decoded values to a Sink:

	sub, _ := session.NewNATSSubscriber(session.DefaultNATSConfig(url), logging.NewWatermillAdapter())
	fetcher := session.NewHTTPFetcher(session.DefaultFetcherConfig(), nil)
	bridge := session.NewBridge(sub, pipeline, fetcher.For, session.DefaultBridgeConfig())

Attachments are not carried in the envelope. The envelope names a payload URL
that HTTPFetcher downloads on demand through a rate limiter and a circuit
breaker.

Classify reduces the content tags of a message to a single Variant using the
priority image > video > audio > other.

Reconnecting the messaging session is the adapter's concern. Redelivered
messages are not deduplicated here.
*/
package session
