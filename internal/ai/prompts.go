package ai

// extractionPrompt steers the model over the attached invoice document.
// The response shape itself is enforced by invoiceSchema; the prompt only
// has to resolve the judgement calls (which party is the supplier, how to
// read ambiguous dates, when to leave a field empty).
const extractionPrompt = `You are reading a supplier invoice (tax invoice). Extract its data.

Rules:
1. supplier_name is the party that ISSUED the invoice - the letterhead/logo
   company, never the customer in the "Bill To" / "Invoiced To" block.
2. Copy text fields exactly as printed, including punctuation and suffixes
   like (Pty) Ltd. Do not normalise, translate or abbreviate.
3. Dates: return them exactly as printed. When a numeric date is ambiguous
   (e.g. 05/04/2026), assume day/month/year ordering.
4. Amounts: plain numbers without currency symbols or thousands separators.
5. line_items: one entry per billed line in document order. Skip subtotal,
   tax, rounding and total rows - those are not line items. If a line shows
   no quantity, use 1 and put the line amount in both unit_price and amount.
6. item_code is only the value of an explicit code/SKU column. Never invent
   one from the description.
7. If a field is not on the document, return an empty string (or 0 for
   numbers). Never guess.`
