// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package tweaks

import "github.com/AleutianAI/EventHorizon/cmd/eventhorizon/internal/util"

// Dogfood Hub commands. Enabling takes two restarts of the Android
// framework: step 1 flips the build type, step 2 (after the restart)
// marks the user as trusted.
var (
	DogfoodStep1Command = util.JoinCommands(
		"magisk resetprop ro.build.type userdebug",
		"stop",
		"start",
	)

	DogfoodStep2Command = util.JoinCommands(
		"am broadcast -a oculus.intent.action.DC_OVERRIDE --esa config_param_value oculus_systemshell:oculus_is_trusted_user:true",
		"stop",
		"start",
	)

	DogfoodDisableCommand = util.JoinCommands(
		"magisk resetprop --delete ro.build.type",
		"stop",
		"start",
	)
)

const (
	// DogfoodLaunchCommand opens the Dogfood Hub panel.
	DogfoodLaunchCommand = "am start com.oculus.vrshell/com.oculus.panelapp.dogfood.DogfoodMainActivity"

	// DogfoodStateCommand prints the build type; "userdebug" means enabled.
	DogfoodStateCommand = "getprop ro.build.type"

	dogfoodBuildType = "userdebug"
)
