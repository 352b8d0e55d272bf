package mcpserver

// ReminderFormatContract describes the reminder fields and the file format
// for LLM consumers.
const ReminderFormatContract = `# Dagaz Reminder Contract

A reminder is a note attached to one calendar date. Each date holds at most
one reminder; setting a date that already has one replaces it.

## Fields

| Field        | Required | Format                                  |
|--------------|----------|-----------------------------------------|
| date         | yes      | YYYY-MM-DD, a real calendar date        |
| text         | yes      | free text, surrounding whitespace trimmed |
| time         | no       | HH:MM, 24-hour (a one-digit hour is accepted); empty means "no time" |
| recurrence   | no       | None, Daily, Weekly or Monthly; default None |

Recurrence is a label only. No future occurrences are generated.

## Rejections

- missing date or text: empty_field
- 2023-02-29, 2024-13-01: invalid_date
- 24:00, 12:60: invalid_time
- any other recurrence tag: invalid_recurrence

## File

Reminders live in one JSON object keyed by date:

` + "```" + `json
{
  "2024-02-20": {"text": "Dentist", "time": "09:30", "recurrence": "None"},
  "2024-03-01": "Legacy entries may be a bare string"
}
` + "```" + `

Bare strings are read as {text, time: "", recurrence: None}. Writes always
use the object form.
`
