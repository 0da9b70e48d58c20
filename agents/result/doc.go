/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

/*
Package result extracts replacement source code from AI model responses.

Models usually wrap the corrected file in a markdown code block, often with an
explanation around it:

	Here is the fixed file:

	```java
	public class A {}
	```

	I renamed the constant.

ExtractCode returns the inner text of the first fenced block, trimmed, with the
language tag removed. A response with no fence is only accepted when it is
multi-line and does not open with conversational text, so an apology or an
explanation is never mistaken for a file:

	code, err := result.ExtractCode(resp)
	if errors.Is(err, result.ErrNoCode) {
		// record the finding as failed
	}
*/
package result
