// File: internal/provider/providers.go
package provider

// This file explicitly imports all provider implementation packages.
// The blank identifier (_) ensures that the init() function of each package runs,
// allowing them to register themselves with the central provider registry.
//
// To add a backend, implement it under pkg/storage/<name>, register it from
// its init() function, and then add the import here.

import (
	_ "cabinet/pkg/storage/aws"
	_ "cabinet/pkg/storage/filesystem"
	_ "cabinet/pkg/storage/gcp"
)
