package llm

// LabelPrompt is the fixed extraction instruction sent with every photo.
const LabelPrompt = `Analyze this router label image (likely a CelcomDigi TP-Link unit). Extract the following fields strictly in JSON format:
- serial_number (labelled as S/N)
- default_ssid (labelled as "2.4G SSID" or just "SSID"; if there are several, prefer the 2.4G one)
- default_pass (labelled as "Wireless Password/PIN" or "Password")
- mac_address (labelled as MAC)

If a field is not visible, return null.
Do not guess.
Return ONLY raw JSON.`
