/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

/*
Package fixer drives one auto-fix run.

A run moves through configuring, clients-ready, fetching-findings, processing,
finalizing and done. Findings are processed one at a time in the order the
analysis server returns them:

  - resolve the prompt template for the rule
  - read the original file from the base branch
  - ask the completion client for the corrected file
  - stage the fix in the batch manager, flushing when the batch is full

Fingerprints are recorded once the file carrying a fix has been committed.
Per-finding problems are recorded in the Summary and never stop the run. Only
ErrConfig, returned by New, and a failure to list findings end a run early.
*/
package fixer
