// Package dialogflow proxies conversation-runtime REST calls from
// connected clients to the conversational backend. The connector holds
// the service credentials; clients authenticate with session tokens and
// never see them. Requests and responses pass through byte-for-byte,
// with the regional endpoint chosen from the location path segment.
package dialogflow
