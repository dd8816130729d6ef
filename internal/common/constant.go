// Package common contains shared constants and sentinel errors used across
// docsync components.
package common

// AccessTokenHeaderName is the HTTP header used to carry the access token on
// outbound requests.
const AccessTokenHeaderName = "Authorization"

// AccessTokenScheme prefixes the access token in AccessTokenHeaderName.
const AccessTokenScheme = "Bearer"

// DeviceIDMetadataKey is the local metadata key holding this installation's
// stable device identifier. The value is generated once on first run and is
// recorded in tombstones as the deleting device.
const DeviceIDMetadataKey = "device_id"

// LastServerVersionMetadataKey is the local metadata key holding the highest
// server version observed by a full reconciliation pass.
const LastServerVersionMetadataKey = "last_server_version"
